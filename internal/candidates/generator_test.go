package candidates

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dupehound/dupehound/internal/models"
	"github.com/dupehound/dupehound/internal/storage"
)

// fakeIndex serves canned lookup results per strategy.
type fakeIndex struct {
	exact   []models.PRHead
	buckets []models.PRHead
	paths   []models.PRHead
	symbols []models.PRHead
}

func (f *fakeIndex) AddExactHash(ctx context.Context, repo string, v int, hash string, h models.PRHead) error {
	return nil
}
func (f *fakeIndex) LookupExactHash(ctx context.Context, repo string, v int, hash string) ([]models.PRHead, error) {
	return f.exact, nil
}
func (f *fakeIndex) AddBuckets(ctx context.Context, repo string, v int, ids []string, h models.PRHead) error {
	return nil
}
func (f *fakeIndex) LookupBuckets(ctx context.Context, repo string, v int, ids []string) ([]models.PRHead, error) {
	return f.buckets, nil
}
func (f *fakeIndex) AddPaths(ctx context.Context, repo string, paths []string, h models.PRHead) error {
	return nil
}
func (f *fakeIndex) LookupPaths(ctx context.Context, repo string, paths []string) ([]models.PRHead, error) {
	return f.paths, nil
}
func (f *fakeIndex) AddSymbols(ctx context.Context, repo string, symbols []string, h models.PRHead) error {
	return nil
}
func (f *fakeIndex) LookupSymbols(ctx context.Context, repo string, symbols []string) ([]models.PRHead, error) {
	return f.symbols, nil
}
func (f *fakeIndex) Close() error { return nil }

// openStore only answers ListOpenPullRequests.
type openStore struct {
	storage.Store
	open []*models.PullRequest
}

func (s *openStore) ListOpenPullRequests(ctx context.Context, repoID string) ([]*models.PullRequest, error) {
	return s.open, nil
}

func head(n int, sha string) models.PRHead {
	return models.PRHead{Number: n, HeadSHA: sha}
}

func openPR(n int, sha string) *models.PullRequest {
	return &models.PullRequest{RepoID: "acme/shop", Number: n, HeadSHA: sha, State: "open"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateUnionsProvenance(t *testing.T) {
	idx := &fakeIndex{
		exact:   []models.PRHead{head(2, "b")},
		buckets: []models.PRHead{head(2, "b"), head(3, "c")},
		paths:   []models.PRHead{head(3, "c"), head(4, "d")},
	}
	store := &openStore{open: []*models.PullRequest{
		openPR(2, "b"), openPR(3, "c"), openPR(4, "d"),
	}}

	g := New(idx, store, 200, 100, testLogger())
	found, err := g.Generate(context.Background(), &Target{
		RepoID:        "acme/shop",
		Head:          head(1, "a"),
		CanonicalHash: "hash",
		BucketIDs:     []string{"0:x"},
		Paths:         []string{"src/a.go"},
	})
	require.NoError(t, err)
	require.Len(t, found, 3)

	// Strongest provenance first, then number.
	assert.Equal(t, 2, found[0].PRNumber)
	assert.Equal(t, []models.RetrievalSource{models.SourceExactHash, models.SourceLSHBucket}, found[0].Provenance)
	assert.Equal(t, 3, found[1].PRNumber)
	assert.Equal(t, []models.RetrievalSource{models.SourceLSHBucket, models.SourcePathOverlap}, found[1].Provenance)
	assert.Equal(t, 4, found[2].PRNumber)
}

func TestGenerateExcludesSelf(t *testing.T) {
	idx := &fakeIndex{paths: []models.PRHead{head(1, "a"), head(2, "b")}}
	store := &openStore{open: []*models.PullRequest{openPR(1, "a"), openPR(2, "b")}}

	g := New(idx, store, 200, 100, testLogger())
	found, err := g.Generate(context.Background(), &Target{
		RepoID: "acme/shop",
		Head:   head(1, "a"),
		Paths:  []string{"src/a.go"},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 2, found[0].PRNumber)
}

func TestGenerateFiltersClosedAndStale(t *testing.T) {
	idx := &fakeIndex{paths: []models.PRHead{
		head(2, "b"),        // open at this head
		head(3, "c-old"),    // open, but the index entry is a superseded head
		head(4, "d-closed"), // closed
	}}
	store := &openStore{open: []*models.PullRequest{
		openPR(2, "b"), openPR(3, "c-new"),
	}}

	g := New(idx, store, 200, 100, testLogger())
	found, err := g.Generate(context.Background(), &Target{
		RepoID: "acme/shop",
		Head:   head(1, "a"),
		Paths:  []string{"src/a.go"},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 2, found[0].PRNumber)
}

func TestGenerateSkipsUnavailableStrategies(t *testing.T) {
	// An empty hash and nil buckets must not hit those indices; the fake
	// would otherwise return results for them.
	idx := &fakeIndex{
		exact:   []models.PRHead{head(9, "z")},
		buckets: []models.PRHead{head(9, "z")},
	}
	store := &openStore{open: []*models.PullRequest{openPR(9, "z")}}

	g := New(idx, store, 200, 100, testLogger())
	found, err := g.Generate(context.Background(), &Target{
		RepoID: "acme/shop",
		Head:   head(1, "a"),
	})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGenerateCaps(t *testing.T) {
	var heads []models.PRHead
	var open []*models.PullRequest
	for i := 2; i < 50; i++ {
		sha := "sha"
		heads = append(heads, head(i, sha))
		open = append(open, openPR(i, sha))
	}

	idx := &fakeIndex{paths: heads}
	store := &openStore{open: open}

	g := New(idx, store, 10, 5, testLogger())
	found, err := g.Generate(context.Background(), &Target{
		RepoID: "acme/shop",
		Head:   head(1, "a"),
		Paths:  []string{"src/a.go"},
	})
	require.NoError(t, err)

	// Per-strategy cap of 5 applies before the total cap of 10.
	assert.Len(t, found, 5)
	for i, c := range found {
		assert.Equal(t, i+2, c.PRNumber, "truncation must be deterministic")
	}
}
