// Package github fetches PR metadata and changed files from the GitHub
// API. This is collaborator plumbing around the engine: nothing here
// participates in scoring.
package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	"github.com/dupehound/dupehound/internal/models"
)

// Client wraps the GitHub API client with rate limiting.
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	maxWorkers  int
}

// NewClient creates a rate-limited GitHub client.
func NewClient(token string, rateLimit int) *Client {
	return &Client{
		client:      github.NewClient(nil).WithAuthToken(token),
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		maxWorkers:  10, // concurrent per-PR fetches during backfill
	}
}

// FetchPullRequest gets one PR's metadata.
func (c *Client) FetchPullRequest(ctx context.Context, owner, name string, number int) (*models.PullRequest, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	pr, _, err := c.client.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, fmt.Errorf("fetch pull request #%d: %w", number, err)
	}

	return convertPR(owner, name, pr), nil
}

// FetchChangedFiles lists one PR's changed files with patches. GitHub omits
// the patch for large or binary files; callers treat that as a degraded,
// not failed, input.
func (c *Client) FetchChangedFiles(ctx context.Context, owner, name string, number int) ([]models.ChangedFile, error) {
	opts := &github.ListOptions{PerPage: 100}
	var files []models.ChangedFile

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		page, resp, err := c.client.PullRequests.ListFiles(ctx, owner, name, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list files for #%d: %w", number, err)
		}

		for _, f := range page {
			files = append(files, models.ChangedFile{
				Path:         f.GetFilename(),
				PreviousPath: f.GetPreviousFilename(),
				Status:       models.FileStatus(f.GetStatus()),
				Additions:    f.GetAdditions(),
				Deletions:    f.GetDeletions(),
				Patch:        f.GetPatch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// ListOpenPullRequests lists all open PRs for the repository.
func (c *Client) ListOpenPullRequests(ctx context.Context, owner, name string) ([]*models.PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var prs []*models.PullRequest
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		page, resp, err := c.client.PullRequests.List(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("list open pull requests: %w", err)
		}

		for _, pr := range page {
			prs = append(prs, convertPR(owner, name, pr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return prs, nil
}

func convertPR(owner, name string, pr *github.PullRequest) *models.PullRequest {
	return &models.PullRequest{
		RepoID:    fmt.Sprintf("%s/%s", owner, name),
		Number:    pr.GetNumber(),
		HeadSHA:   pr.GetHead().GetSHA(),
		Title:     pr.GetTitle(),
		Author:    pr.GetUser().GetLogin(),
		State:     pr.GetState(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}
}
