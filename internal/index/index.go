// Package index holds the retrieval indices the candidate generator queries:
// exact canonical-diff hash, LSH bucket membership, changed-path overlap, and
// symbol overlap. All writes are idempotent set-inserts, so overlapping
// retries for the same PR head need no mutual exclusion.
package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dupehound/dupehound/internal/models"
)

// Index is the lookup/insert contract. Every key is scoped by repository,
// and hash/bucket keys additionally by signature version, so incompatible
// signature generations never cross-match.
type Index interface {
	AddExactHash(ctx context.Context, repo string, sigVersion int, hash string, head models.PRHead) error
	LookupExactHash(ctx context.Context, repo string, sigVersion int, hash string) ([]models.PRHead, error)

	// AddBuckets inserts the head into each LSH bucket with the configured
	// TTL so stale candidates age out of the recent-PR window.
	AddBuckets(ctx context.Context, repo string, sigVersion int, bucketIDs []string, head models.PRHead) error
	LookupBuckets(ctx context.Context, repo string, sigVersion int, bucketIDs []string) ([]models.PRHead, error)

	AddPaths(ctx context.Context, repo string, paths []string, head models.PRHead) error
	LookupPaths(ctx context.Context, repo string, paths []string) ([]models.PRHead, error)

	AddSymbols(ctx context.Context, repo string, symbols []string, head models.PRHead) error
	LookupSymbols(ctx context.Context, repo string, symbols []string) ([]models.PRHead, error)

	Close() error
}

// member encoding inside index values: "<number>@<sha>".

func encodeMember(head models.PRHead) string {
	return fmt.Sprintf("%d@%s", head.Number, head.HeadSHA)
}

func decodeMember(s string) (models.PRHead, bool) {
	num, sha, ok := strings.Cut(s, "@")
	if !ok {
		return models.PRHead{}, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return models.PRHead{}, false
	}
	return models.PRHead{Number: n, HeadSHA: sha}, true
}

func hashKey(repo string, sigVersion int, hash string) string {
	return fmt.Sprintf("%s:v%d:%s", repo, sigVersion, hash)
}

func bucketKey(repo string, sigVersion int, bucketID string) string {
	return fmt.Sprintf("%s:v%d:%s", repo, sigVersion, bucketID)
}

func pathKey(repo, path string) string {
	return repo + ":" + path
}

func symbolKey(repo, symbol string) string {
	return repo + ":" + symbol
}

// dedupeHeads unions results preserving first-seen order.
func dedupeHeads(heads []models.PRHead) []models.PRHead {
	seen := make(map[models.PRHead]bool, len(heads))
	out := heads[:0]
	for _, h := range heads {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
