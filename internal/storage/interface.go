// Package storage persists pull requests, channel signatures, and analysis
// results. The engine treats it as a synchronous collaborator: timeouts and
// retries belong to the caller, and a store failure fails the analysis run.
package storage

import (
	"context"
	"errors"

	"github.com/dupehound/dupehound/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Store defines the signature/result storage interface.
type Store interface {
	// Pull request operations
	SavePullRequest(ctx context.Context, pr *models.PullRequest) error
	GetPullRequest(ctx context.Context, repoID string, number int) (*models.PullRequest, error)
	ListOpenPullRequests(ctx context.Context, repoID string) ([]*models.PullRequest, error)

	// Signature operations, keyed by (repo, PR, head, channel, signature version)
	SaveSignature(ctx context.Context, sig *models.ChannelSignature) error
	GetSignature(ctx context.Context, repoID string, prNumber int, headSHA string, channel models.Channel, sigVersion int) (*models.ChannelSignature, error)

	// Analysis results: one run plus its scored edges, written atomically
	SaveAnalysisRun(ctx context.Context, run *models.AnalysisRun, edges []*models.ScoredEdge) error
	GetLatestRun(ctx context.Context, repoID string, prNumber int) (*models.AnalysisRun, error)
	ListEdges(ctx context.Context, runID string) ([]*models.ScoredEdge, error)

	// ListEdgesAboveScore returns the newest run's edges per open PR with
	// final_score >= minScore, for the duplicate-sets view.
	ListEdgesAboveScore(ctx context.Context, repoID string, minScore float64) ([]*models.ScoredEdge, error)

	// Close connection
	Close() error
}
