package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dupehound/dupehound/internal/config"
	"github.com/dupehound/dupehound/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logging.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if logger != nil {
		logger.Close()
	}
}

var rootCmd = &cobra.Command{
	Use:   "dupehound",
	Short: "Dupehound - duplicate and overlap detection for pull requests",
	Long: `Dupehound fingerprints pull request diffs per channel (production,
tests, docs), indexes them for fast retrieval, and scores open PRs
against each other to surface duplicates, competing implementations,
and related work.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logging.INFO
		if verbose {
			level = logging.DEBUG
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if !verbose {
			level = logging.ParseLevel(cfg.Log.Level)
		}

		logger, err = logging.New(logging.Config{
			Level:      level,
			OutputFile: cfg.Log.File,
			JSONFormat: cfg.Log.JSONFormat,
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .dupehound/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`Dupehound {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(configCmd)
}
