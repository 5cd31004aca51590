package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dupehound/dupehound/internal/dupeset"
)

var groupsCmd = &cobra.Command{
	Use:   "groups OWNER/REPO",
	Short: "Show duplicate sets among analyzed open PRs",
	Long: `Reads the newest persisted run per open PR and connects PRs whose
pairwise score clears the grouping threshold. Groups are a read-time
view; nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runGroups,
}

func init() {
	groupsCmd.Flags().Float64("min-score", 0, "Override the grouping score floor")
}

func runGroups(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	owner, name, err := parseRepo(args[0])
	if err != nil {
		return err
	}
	repoID := owner + "/" + name

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	minScore := rt.thresholds.Grouping.MinScore
	if v, _ := cmd.Flags().GetFloat64("min-score"); v > 0 {
		minScore = v
	}

	edges, err := rt.store.ListEdgesAboveScore(ctx, repoID, minScore)
	if err != nil {
		return err
	}

	groups := dupeset.Groups(edges, minScore)
	if len(groups) == 0 {
		fmt.Printf("No duplicate sets in %s at score >= %.2f\n", repoID, minScore)
		return nil
	}

	fmt.Printf("%d duplicate set(s) in %s (score >= %.2f):\n", len(groups), repoID, minScore)
	for i, g := range groups {
		members := make([]string, len(g.Members))
		for j, m := range g.Members {
			members[j] = fmt.Sprintf("#%d", m.Number)
		}
		fmt.Printf("  %d. %s\n", i+1, strings.Join(members, ", "))
	}
	return nil
}
