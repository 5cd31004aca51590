// Package evidence assembles the human-readable justification that must
// accompany every surfaced candidate: the overlapping names behind each
// signal plus the raw similarity values. An edge with no evidence is never
// surfaced, so construction here is mandatory, not decorative.
package evidence

import (
	"github.com/dupehound/dupehound/internal/models"
	"github.com/dupehound/dupehound/internal/scoring"
)

// Builder truncates every overlap list to a fixed cap so bundles stay
// bounded regardless of how large the overlap is.
type Builder struct {
	maxItems int
}

// New creates a builder with the configured per-field cap.
func New(maxItems int) *Builder {
	return &Builder{maxItems: maxItems}
}

// Build assembles the bundle for one scored pair. Input lists are sorted,
// so intersections come out sorted and deterministic.
func (b *Builder) Build(target, candidate *scoring.PairInput, signals models.SignalSet) models.Evidence {
	ev := models.Evidence{Signals: signals}

	tp, cp := production(target), production(candidate)
	ev.Paths = b.overlap(tp.Paths, cp.Paths)
	ev.Exports = b.overlap(tp.Exports, cp.Exports)
	ev.Symbols = b.overlap(tp.Symbols, cp.Symbols)
	ev.Imports = b.overlap(tp.Imports, cp.Imports)

	tt, ct := tests(target), tests(candidate)
	ev.Suites = b.overlap(tt.Suites, ct.Suites)
	ev.Tests = b.overlap(tt.Tests, ct.Tests)
	ev.Matchers = b.overlap(tt.Matchers, ct.Matchers)

	td, cd := docs(target), docs(candidate)
	ev.Headings = b.overlap(td.Headings, cd.Headings)
	ev.Fences = b.overlap(td.FenceLangs, cd.FenceLangs)

	return ev
}

// overlap intersects two sorted slices, truncated to the cap.
func (b *Builder) overlap(a, c []string) []string {
	var out []string
	i, j := 0, 0
	for i < len(a) && j < len(c) && len(out) < b.maxItems {
		switch {
		case a[i] == c[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < c[j]:
			i++
		default:
			j++
		}
	}
	return out
}

var (
	emptyProduction models.ProductionPayload
	emptyTests      models.TestsPayload
	emptyDocs       models.DocsPayload
)

func production(p *scoring.PairInput) *models.ProductionPayload {
	if p.Production == nil || p.Production.Production == nil {
		return &emptyProduction
	}
	return p.Production.Production
}

func tests(p *scoring.PairInput) *models.TestsPayload {
	if p.Tests == nil || p.Tests.Tests == nil {
		return &emptyTests
	}
	return p.Tests.Tests
}

func docs(p *scoring.PairInput) *models.DocsPayload {
	if p.Docs == nil || p.Docs.Docs == nil {
		return &emptyDocs
	}
	return p.Docs.Docs
}
