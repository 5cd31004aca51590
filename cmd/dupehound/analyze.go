package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dupehound/dupehound/internal/output"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze OWNER/REPO PR_NUMBER",
	Short: "Fetch one PR, score it against indexed open PRs, and report",
	Long: `Fetches the PR's metadata and changed files, fingerprints its head,
retrieves candidate PRs from the indices, scores every pair, and
prints the ranked result. The run is persisted so later analyses of
other PRs can see this head.`,
	Args: cobra.ExactArgs(2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Bool("summary", false, "Print the capped summary block instead of the full report")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, name, err := parseRepo(args[0])
	if err != nil {
		return err
	}
	number, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid PR number %q", args[1])
	}

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	pr, err := rt.github.FetchPullRequest(ctx, owner, name, number)
	if err != nil {
		return err
	}
	files, err := rt.github.FetchChangedFiles(ctx, owner, name, number)
	if err != nil {
		return err
	}

	run, edges, err := rt.engine.Analyze(ctx, pr, files)
	if err != nil {
		return err
	}

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		fmt.Print(output.Summary(run, edges, rt.thresholds.Publish.MaxCandidates))
		return nil
	}

	output.WriteReport(os.Stdout, run, edges)
	return nil
}
