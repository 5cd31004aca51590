package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dupehound/dupehound/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("storage:    %s", cfg.Storage.Type)
		if cfg.Storage.Type == "sqlite" {
			fmt.Printf(" (%s)", cfg.Storage.LocalPath)
		}
		fmt.Println()
		fmt.Printf("index:      %s", cfg.Index.Type)
		if cfg.Index.Type == "bolt" {
			fmt.Printf(" (%s)", cfg.Index.LocalPath)
		} else {
			fmt.Printf(" (%s:%d)", cfg.Index.RedisHost, cfg.Index.RedisPort)
		}
		fmt.Println()
		fmt.Printf("bucket ttl: %s\n", cfg.Index.BucketTTL)
		fmt.Printf("rate limit: %d req/s\n", cfg.GitHub.RateLimit)
		if cfg.RulesFile != "" {
			fmt.Printf("rules:      %s\n", cfg.RulesFile)
		} else {
			fmt.Println("rules:      built-in defaults")
		}
		if cfg.ThresholdsFile != "" {
			fmt.Printf("thresholds: %s\n", cfg.ThresholdsFile)
		} else {
			fmt.Println("thresholds: built-in defaults")
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, rules, and thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if _, _, err := loadAnalysisConfig(cfg); err != nil {
			return err
		}
		fmt.Println("Configuration valid")
		return nil
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store a GitHub token in the OS keychain",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.PromptGitHubToken(); err != nil {
			return err
		}
		fmt.Println("Token stored")
		return nil
	},
}

var configDeleteTokenCmd = &cobra.Command{
	Use:   "delete-token",
	Short: "Remove the stored GitHub token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.NewKeyringManager().DeleteGitHubToken(); err != nil {
			return err
		}
		fmt.Println("Token removed")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configDeleteTokenCmd)
}
