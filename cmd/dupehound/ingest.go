package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest OWNER/REPO",
	Short: "Fingerprint and index every open PR in a repository",
	Long: `Backfills the signature store and retrieval indices for all open
PRs. Ingest is idempotent per head: re-running it refreshes index
TTLs without duplicating anything, so it is safe on a schedule.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, name, err := parseRepo(args[0])
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	fetched, err := rt.github.FetchOpenPullRequests(ctx, owner, name)
	if err != nil {
		return err
	}

	degraded := 0
	for _, f := range fetched {
		result, err := rt.engine.Ingest(ctx, f.PR, f.Files)
		if err != nil {
			return fmt.Errorf("ingest #%d: %w", f.PR.Number, err)
		}
		if len(result.DegradedReasons) > 0 {
			degraded++
			logger.Slog().Warn("ingested with degraded extraction",
				"pr", f.PR.Number, "reasons", result.DegradedReasons)
		}
	}

	fmt.Printf("Ingested %d open PR(s) from %s/%s", len(fetched), owner, name)
	if degraded > 0 {
		fmt.Printf(" (%d with incomplete patches)", degraded)
	}
	fmt.Println()
	return nil
}
