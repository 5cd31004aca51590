// Package candidates retrieves a bounded set of likely-duplicate PR heads
// for a target without scanning all PRs: four independent index strategies
// run, each capped, and their union is truncated before scoring.
package candidates

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dupehound/dupehound/internal/index"
	"github.com/dupehound/dupehound/internal/models"
	"github.com/dupehound/dupehound/internal/storage"
)

// Target carries everything retrieval needs about the PR under analysis.
type Target struct {
	RepoID           string
	Head             models.PRHead
	SignatureVersion int

	// CanonicalHash is empty when the production diff has no content lines;
	// an empty production diff never exact-matches.
	CanonicalHash string

	// BucketIDs is nil when the production shingle set is empty. The lookup
	// is skipped entirely then, so the empty-set sentinel signature can
	// never match other empty diffs.
	BucketIDs []string

	Paths   []string
	Symbols []string // union of export/declaration/import names
}

// Generator unions the four retrieval strategies over the index store.
type Generator struct {
	idx            index.Index
	store          storage.Store
	maxTotal       int
	maxPerStrategy int
	logger         *slog.Logger
}

// New creates a candidate generator with the configured caps.
func New(idx index.Index, store storage.Store, maxTotal, maxPerStrategy int, logger *slog.Logger) *Generator {
	return &Generator{
		idx:            idx,
		store:          store,
		maxTotal:       maxTotal,
		maxPerStrategy: maxPerStrategy,
		logger:         logger,
	}
}

// Generate retrieves candidates for the target. The result excludes the
// target itself and only contains currently-open PRs at their
// most-recently-ingested head, truncated to the configured maximum.
func (g *Generator) Generate(ctx context.Context, target *Target) ([]models.Candidate, error) {
	type hit struct {
		sources []models.RetrievalSource
	}
	hits := make(map[models.PRHead]*hit)

	record := func(heads []models.PRHead, source models.RetrievalSource) {
		if len(heads) > g.maxPerStrategy {
			heads = heads[:g.maxPerStrategy]
		}
		for _, h := range heads {
			if h.Number == target.Head.Number {
				continue
			}
			if existing, ok := hits[h]; ok {
				existing.sources = append(existing.sources, source)
			} else {
				hits[h] = &hit{sources: []models.RetrievalSource{source}}
			}
		}
	}

	if target.CanonicalHash != "" {
		heads, err := g.idx.LookupExactHash(ctx, target.RepoID, target.SignatureVersion, target.CanonicalHash)
		if err != nil {
			return nil, fmt.Errorf("exact hash lookup: %w", err)
		}
		record(heads, models.SourceExactHash)
	}

	if len(target.BucketIDs) > 0 {
		heads, err := g.idx.LookupBuckets(ctx, target.RepoID, target.SignatureVersion, target.BucketIDs)
		if err != nil {
			return nil, fmt.Errorf("lsh bucket lookup: %w", err)
		}
		record(heads, models.SourceLSHBucket)
	}

	if len(target.Paths) > 0 {
		heads, err := g.idx.LookupPaths(ctx, target.RepoID, target.Paths)
		if err != nil {
			return nil, fmt.Errorf("path overlap lookup: %w", err)
		}
		record(heads, models.SourcePathOverlap)
	}

	if len(target.Symbols) > 0 {
		heads, err := g.idx.LookupSymbols(ctx, target.RepoID, target.Symbols)
		if err != nil {
			return nil, fmt.Errorf("symbol overlap lookup: %w", err)
		}
		record(heads, models.SourceSymbolOverlap)
	}

	if len(hits) == 0 {
		return nil, nil
	}

	open, err := g.openHeads(ctx, target.RepoID)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(hits))
	for head, h := range hits {
		// Index entries outlive PR state changes; drop closed PRs and
		// superseded heads here rather than trying to purge the index.
		if open[head.Number] != head.HeadSHA {
			continue
		}
		candidates = append(candidates, models.Candidate{
			PRNumber:   head.Number,
			HeadSHA:    head.HeadSHA,
			Provenance: h.sources,
		})
	}

	sortCandidates(candidates)

	if len(candidates) > g.maxTotal {
		g.logger.Debug("candidate set truncated",
			"pr", target.Head.Number, "found", len(candidates), "max", g.maxTotal)
		candidates = candidates[:g.maxTotal]
	}

	return candidates, nil
}

func (g *Generator) openHeads(ctx context.Context, repoID string) (map[int]string, error) {
	prs, err := g.store.ListOpenPullRequests(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("list open PRs: %w", err)
	}
	open := make(map[int]string, len(prs))
	for _, pr := range prs {
		open[pr.Number] = pr.HeadSHA
	}
	return open, nil
}

// sourceRank orders provenance by retrieval confidence.
var sourceRank = map[models.RetrievalSource]int{
	models.SourceExactHash:     0,
	models.SourceLSHBucket:     1,
	models.SourcePathOverlap:   2,
	models.SourceSymbolOverlap: 3,
}

// sortCandidates orders deterministically: strongest provenance first, more
// independent sources first, then PR number. Truncation must never depend
// on map iteration order.
func sortCandidates(candidates []models.Candidate) {
	for _, c := range candidates {
		sort.Slice(c.Provenance, func(i, j int) bool {
			return sourceRank[c.Provenance[i]] < sourceRank[c.Provenance[j]]
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := sourceRank[a.Provenance[0]], sourceRank[b.Provenance[0]]; ra != rb {
			return ra < rb
		}
		if len(a.Provenance) != len(b.Provenance) {
			return len(a.Provenance) > len(b.Provenance)
		}
		return a.PRNumber < b.PRNumber
	})
}
