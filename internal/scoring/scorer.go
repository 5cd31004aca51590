// Package scoring computes the eight per-pair similarity signals,
// aggregates them under channel weights and caps, and assigns a category
// from the fixed-order decision table. Production evidence dominates by
// construction: test and doc contributions are capped, so no amount of
// side-channel similarity can carry a pair on its own.
package scoring

import (
	"sort"

	"github.com/dupehound/dupehound/internal/config"
	"github.com/dupehound/dupehound/internal/minhash"
	"github.com/dupehound/dupehound/internal/models"
)

// PairInput is one side of a scored pair: the per-channel signatures of one
// PR head. Any channel may be nil when the PR has no files in it.
type PairInput struct {
	Production *models.ChannelSignature
	Tests      *models.ChannelSignature
	Docs       *models.ChannelSignature
}

// Result is the scored verdict for one candidate pair.
type Result struct {
	Signals    models.SignalSet
	ProdScore  float64
	FinalScore float64
	Category   models.Category
}

// Scorer evaluates pairs under one loaded thresholds configuration.
type Scorer struct {
	engine     *minhash.Engine
	thresholds *config.Thresholds
}

// New creates a scorer. The thresholds are read-only after load; the scorer
// is safe for concurrent use.
func New(engine *minhash.Engine, thresholds *config.Thresholds) *Scorer {
	return &Scorer{engine: engine, thresholds: thresholds}
}

// Score computes signals, aggregate, and category for one pair. complete
// reports whether every stored signal for the candidate could be loaded;
// when it could not, the verdict is UNCERTAIN rather than a confident
// category built on missing data.
func (s *Scorer) Score(target, candidate *PairInput, complete bool) (*Result, error) {
	signals, err := s.computeSignals(target, candidate)
	if err != nil {
		return nil, err
	}

	w := s.thresholds.Weights
	prodScore := clamp01(w.Minhash*signals.ProdMinhash +
		w.Paths*signals.ProdPaths +
		w.Exports*signals.ProdExports +
		w.Symbols*signals.ProdSymbols +
		w.Imports*signals.ProdImports)

	testContribution := min(w.Tests*signals.TestsIntent, s.thresholds.Caps.Tests)
	docContribution := min(w.Docs*signals.DocsStruct, s.thresholds.Caps.Docs)
	finalScore := clamp01(prodScore + testContribution + docContribution)

	category := s.categorize(signals, prodScore, finalScore)
	if !complete && category != models.CategorySameChange {
		category = models.CategoryUncertain
	}

	return &Result{
		Signals:    *signals,
		ProdScore:  prodScore,
		FinalScore: finalScore,
		Category:   category,
	}, nil
}

func (s *Scorer) computeSignals(target, candidate *PairInput) (*models.SignalSet, error) {
	signals := &models.SignalSet{}

	tp := productionPayload(target.Production)
	cp := productionPayload(candidate.Production)

	if hash := canonicalHash(target.Production); hash != "" && hash == canonicalHash(candidate.Production) {
		signals.ExactHash = 1
	}

	// The sentinel signature matches any other sentinel position-for-
	// position, so the estimator only runs when both sides fingerprinted
	// actual content.
	if shingleCount(target.Production) > 0 && shingleCount(candidate.Production) > 0 {
		sim, err := s.engine.Similarity(target.Production.MinHash, candidate.Production.MinHash)
		if err != nil {
			return nil, err
		}
		signals.ProdMinhash = sim
	}

	signals.ProdPaths = Jaccard(tp.Paths, cp.Paths)
	signals.ProdExports = Jaccard(tp.Exports, cp.Exports)
	signals.ProdSymbols = Jaccard(tp.Symbols, cp.Symbols)
	signals.ProdImports = Jaccard(tp.Imports, cp.Imports)
	signals.TestsIntent = Jaccard(testElements(target.Tests), testElements(candidate.Tests))
	signals.DocsStruct = Jaccard(docElements(target.Docs), docElements(candidate.Docs))

	return signals, nil
}

// categorize walks the decision table in fixed order; first match wins.
// A pair satisfying both SAME_FEATURE and COMPETING_IMPLEMENTATION gets
// SAME_FEATURE: that preference is policy, not accident.
func (s *Scorer) categorize(signals *models.SignalSet, prodScore, finalScore float64) models.Category {
	c := s.thresholds.Categories

	if signals.ExactHash == 1 ||
		(signals.ProdMinhash >= c.SameChangeMinhash && signals.ProdPaths >= c.SameChangeFiles) {
		return models.CategorySameChange
	}

	supporting := max(signals.TestsIntent, max(signals.DocsStruct, signals.ProdMinhash))
	if prodScore >= c.SameFeatureProd && supporting >= c.SupportingSignalMin {
		return models.CategorySameFeature
	}

	if signals.TestsIntent >= c.CompetingTestsMin && prodScore <= c.CompetingProdMax {
		return models.CategoryCompeting
	}

	if finalScore >= c.RelatedFinalMin {
		return models.CategoryRelated
	}

	return models.CategoryNotRelated
}

// Jaccard computes |A ∩ B| / |A ∪ B| over sorted, deduplicated slices.
// Two empty sets are trivially equal (1); one empty set shares nothing (0).
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			intersection++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

var emptyProduction = models.ProductionPayload{}

func productionPayload(sig *models.ChannelSignature) *models.ProductionPayload {
	if sig == nil || sig.Production == nil {
		return &emptyProduction
	}
	return sig.Production
}

func canonicalHash(sig *models.ChannelSignature) string {
	if sig == nil {
		return ""
	}
	return sig.CanonicalHash
}

func shingleCount(sig *models.ChannelSignature) int {
	if sig == nil {
		return 0
	}
	return sig.ShingleCount
}

// testElements flattens a tests payload into one tagged element set so a
// suite name never collides with an identical import specifier.
func testElements(sig *models.ChannelSignature) []string {
	if sig == nil || sig.Tests == nil {
		return nil
	}
	p := sig.Tests
	out := make([]string, 0, len(p.Suites)+len(p.Tests)+len(p.Matchers)+len(p.Imports))
	for _, s := range p.Suites {
		out = append(out, "suite:"+s)
	}
	for _, t := range p.Tests {
		out = append(out, "test:"+t)
	}
	for _, m := range p.Matchers {
		out = append(out, "matcher:"+m)
	}
	for _, i := range p.Imports {
		out = append(out, "import:"+i)
	}
	return sortedUnique(out)
}

func docElements(sig *models.ChannelSignature) []string {
	if sig == nil || sig.Docs == nil {
		return nil
	}
	p := sig.Docs
	out := make([]string, 0, len(p.Headings)+len(p.FenceLangs)+len(p.Refs))
	for _, h := range p.Headings {
		out = append(out, "heading:"+h)
	}
	for _, f := range p.FenceLangs {
		out = append(out, "fence:"+f)
	}
	for _, r := range p.Refs {
		out = append(out, "ref:"+r)
	}
	return sortedUnique(out)
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
