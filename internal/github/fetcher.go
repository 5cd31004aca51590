package github

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dupehound/dupehound/internal/models"
)

// FetchedPR bundles a PR with its changed files for ingestion.
type FetchedPR struct {
	PR    *models.PullRequest
	Files []models.ChangedFile
}

// FetchOpenPullRequests fetches every open PR and its changed files,
// fanning out file fetches across workers. Results come back in PR
// number order regardless of completion order.
func (c *Client) FetchOpenPullRequests(ctx context.Context, owner, name string) ([]FetchedPR, error) {
	prs, err := c.ListOpenPullRequests(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	if len(prs) == 0 {
		return nil, nil
	}

	results := make([]FetchedPR, len(prs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)

	for i, pr := range prs {
		i, pr := i, pr
		g.Go(func() error {
			files, err := c.FetchChangedFiles(gctx, owner, name, pr.Number)
			if err != nil {
				return fmt.Errorf("pull request #%d: %w", pr.Number, err)
			}
			mu.Lock()
			results[i] = FetchedPR{PR: pr, Files: files}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
