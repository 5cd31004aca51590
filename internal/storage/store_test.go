package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dupehound/dupehound/internal/models"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPR(number int, sha, state string) *models.PullRequest {
	return &models.PullRequest{
		RepoID:    "acme/shop",
		Number:    number,
		HeadSHA:   sha,
		Title:     "add order creation",
		Author:    "dev",
		State:     state,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestPullRequestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pr := testPR(7, "aaa", "open")
	require.NoError(t, s.SavePullRequest(ctx, pr))

	got, err := s.GetPullRequest(ctx, "acme/shop", 7)
	require.NoError(t, err)
	assert.Equal(t, pr.HeadSHA, got.HeadSHA)
	assert.Equal(t, pr.Title, got.Title)

	_, err = s.GetPullRequest(ctx, "acme/shop", 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSavePullRequestUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePullRequest(ctx, testPR(7, "aaa", "open")))
	require.NoError(t, s.SavePullRequest(ctx, testPR(7, "bbb", "closed")))

	got, err := s.GetPullRequest(ctx, "acme/shop", 7)
	require.NoError(t, err)
	assert.Equal(t, "bbb", got.HeadSHA)
	assert.Equal(t, "closed", got.State)

	open, err := s.ListOpenPullRequests(ctx, "acme/shop")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestSignatureRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sig := &models.ChannelSignature{
		RepoID:           "acme/shop",
		PRNumber:         7,
		HeadSHA:          "aaa",
		Channel:          models.ChannelProduction,
		SignatureVersion: 1,
		CanonicalHash:    "deadbeef",
		MinHash:          []uint32{1, 2, 3, 0xFFFFFFFF},
		ShingleCount:     42,
		Production: &models.ProductionPayload{
			Paths:   []string{"src/orders.ts"},
			Exports: []string{"createOrder"},
			Symbols: []string{"createOrder", "taxRate"},
			Imports: []string{"./db/client"},
		},
	}
	require.NoError(t, s.SaveSignature(ctx, sig))

	got, err := s.GetSignature(ctx, "acme/shop", 7, "aaa", models.ChannelProduction, 1)
	require.NoError(t, err)
	assert.Equal(t, sig.CanonicalHash, got.CanonicalHash)
	assert.Equal(t, sig.MinHash, got.MinHash)
	assert.Equal(t, sig.ShingleCount, got.ShingleCount)
	assert.Equal(t, sig.Production, got.Production)
	assert.Nil(t, got.Tests)

	// Keyed by channel and version.
	_, err = s.GetSignature(ctx, "acme/shop", 7, "aaa", models.ChannelTests, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetSignature(ctx, "acme/shop", 7, "aaa", models.ChannelProduction, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSignatureUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sig := &models.ChannelSignature{
		RepoID: "acme/shop", PRNumber: 7, HeadSHA: "aaa",
		Channel: models.ChannelTests, SignatureVersion: 1,
		MinHash: []uint32{1},
		Tests:   &models.TestsPayload{Tests: []string{"creates the order"}},
	}
	require.NoError(t, s.SaveSignature(ctx, sig))

	sig.Tests.Tests = append(sig.Tests.Tests, "rejects invalid totals")
	sig.ShingleCount = 5
	require.NoError(t, s.SaveSignature(ctx, sig))

	got, err := s.GetSignature(ctx, "acme/shop", 7, "aaa", models.ChannelTests, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ShingleCount)
	assert.Len(t, got.Tests.Tests, 2)
}

func newRun(id string, pr int, completedAt time.Time) *models.AnalysisRun {
	return &models.AnalysisRun{
		ID: id, RepoID: "acme/shop", PRNumber: pr, HeadSHA: "aaa",
		SignatureVersion: 1, AlgorithmVersion: 1, ConfigVersion: "builtin-1",
		StartedAt: completedAt.Add(-time.Second), CompletedAt: completedAt,
	}
}

func newEdge(runID string, pr, other int, score float64) *models.ScoredEdge {
	return &models.ScoredEdge{
		RunID: runID, RepoID: "acme/shop", PRNumber: pr, HeadSHA: "aaa",
		OtherPR: other, OtherSHA: "bbb",
		Provenance: []models.RetrievalSource{models.SourceExactHash},
		Signals:    models.SignalSet{ExactHash: 1},
		Category:   models.CategorySameChange,
		FinalScore: score,
		Evidence:   models.Evidence{Paths: []string{"src/orders.ts"}},
	}
}

func TestAnalysisRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	run := newRun("run-1", 7, now)
	run.DegradedReasons = []string{"missing patch for src/big.ts, extraction skipped"}
	run.CandidateCount = 1
	run.EdgeCount = 1

	edge := newEdge("run-1", 7, 8, 0.97)
	require.NoError(t, s.SaveAnalysisRun(ctx, run, []*models.ScoredEdge{edge}))

	got, err := s.GetLatestRun(ctx, "acme/shop", 7)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, run.DegradedReasons, got.DegradedReasons)
	assert.True(t, got.Degraded())

	edges, err := s.ListEdges(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, edge.Provenance, edges[0].Provenance)
	assert.Equal(t, edge.Signals, edges[0].Signals)
	assert.Equal(t, edge.Evidence, edges[0].Evidence)
	assert.Equal(t, models.CategorySameChange, edges[0].Category)
}

func TestGetLatestRunPicksNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.SaveAnalysisRun(ctx, newRun("run-old", 7, base), nil))
	require.NoError(t, s.SaveAnalysisRun(ctx, newRun("run-new", 7, base.Add(time.Minute)), nil))

	got, err := s.GetLatestRun(ctx, "acme/shop", 7)
	require.NoError(t, err)
	assert.Equal(t, "run-new", got.ID)
}

func TestListEdgesAboveScoreUsesNewestRunPerPR(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)

	// PR 7's old run had a high edge; its new run does not. The old edge
	// must not resurface.
	oldRun := newRun("run-old", 7, base)
	require.NoError(t, s.SaveAnalysisRun(ctx, oldRun, []*models.ScoredEdge{newEdge("run-old", 7, 8, 0.95)}))
	newRun7 := newRun("run-new", 7, base.Add(time.Minute))
	require.NoError(t, s.SaveAnalysisRun(ctx, newRun7, []*models.ScoredEdge{newEdge("run-new", 7, 9, 0.80)}))

	// PR 10 has one run with a low edge.
	run10 := newRun("run-10", 10, base)
	require.NoError(t, s.SaveAnalysisRun(ctx, run10, []*models.ScoredEdge{newEdge("run-10", 10, 11, 0.20)}))

	edges, err := s.ListEdgesAboveScore(ctx, "acme/shop", 0.55)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "run-new", edges[0].RunID)
	assert.Equal(t, 9, edges[0].OtherPR)
}
