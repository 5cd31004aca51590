package scoring

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dupehound/dupehound/internal/config"
	"github.com/dupehound/dupehound/internal/minhash"
	"github.com/dupehound/dupehound/internal/models"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		expected float64
	}{
		{"both empty", nil, nil, 1},
		{"one empty", nil, []string{"x"}, 0},
		{"other empty", []string{"x"}, nil, 0},
		{"identical", []string{"a", "b"}, []string{"a", "b"}, 1},
		{"disjoint", []string{"a", "b"}, []string{"c", "d"}, 0},
		{"half", []string{"a", "b", "c"}, []string{"b", "c", "d"}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Jaccard(tt.a, tt.b))
		})
	}
}

func newScorer() (*Scorer, *minhash.Engine) {
	e := minhash.New()
	return New(e, config.DefaultThresholds()), e
}

// prodSig builds a production signature over a synthetic shingle set.
func prodSig(e *minhash.Engine, hash string, shingles []string, payload *models.ProductionPayload) *models.ChannelSignature {
	set := make(map[string]struct{}, len(shingles))
	for _, s := range shingles {
		set[s] = struct{}{}
	}
	if payload == nil {
		payload = &models.ProductionPayload{}
	}
	return &models.ChannelSignature{
		Channel:       models.ChannelProduction,
		CanonicalHash: hash,
		MinHash:       e.ComputeSignature(set),
		ShingleCount:  len(set),
		Production:    payload,
	}
}

func manyShingles(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + strconv.Itoa(i)
	}
	return out
}

func TestScoreExactHashShortCircuit(t *testing.T) {
	s, e := newScorer()

	target := &PairInput{Production: prodSig(e, "deadbeef", manyShingles("s", 20), nil)}
	candidate := &PairInput{Production: prodSig(e, "deadbeef", manyShingles("t", 20), nil)}

	res, err := s.Score(target, candidate, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Signals.ExactHash)
	assert.Equal(t, models.CategorySameChange, res.Category)

	// Exact-hash identity survives an incomplete candidate load.
	res, err = s.Score(target, candidate, false)
	require.NoError(t, err)
	assert.Equal(t, models.CategorySameChange, res.Category)
}

func TestScoreEmptyHashNeverMatches(t *testing.T) {
	s, e := newScorer()

	target := &PairInput{Production: prodSig(e, "", nil, nil)}
	candidate := &PairInput{Production: prodSig(e, "", nil, nil)}

	res, err := s.Score(target, candidate, true)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Signals.ExactHash)
}

func TestScoreSentinelSignaturesDoNotMatch(t *testing.T) {
	s, e := newScorer()

	// Two empty shingle sets produce identical sentinel signatures; the
	// estimator must not report them as similar.
	target := &PairInput{Production: prodSig(e, "", nil, nil)}
	candidate := &PairInput{Production: prodSig(e, "", nil, nil)}

	res, err := s.Score(target, candidate, true)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Signals.ProdMinhash)
}

func TestScoreSameChangeViaMinhash(t *testing.T) {
	s, e := newScorer()
	payload := &models.ProductionPayload{Paths: []string{"src/a.go", "src/b.go"}}

	target := &PairInput{Production: prodSig(e, "h1", manyShingles("s", 50), payload)}
	candidate := &PairInput{Production: prodSig(e, "h2", manyShingles("s", 50), payload)}

	res, err := s.Score(target, candidate, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Signals.ProdMinhash)
	assert.Equal(t, 1.0, res.Signals.ProdPaths)
	assert.Equal(t, models.CategorySameChange, res.Category)
}

func TestScoreCapsSideChannels(t *testing.T) {
	s, e := newScorer()
	th := config.DefaultThresholds()

	// Disjoint production everywhere; tests and docs agree perfectly.
	testsPayload := &models.TestsPayload{Tests: []string{"creates the order"}}
	docsPayload := &models.DocsPayload{Headings: []string{"rate limiting"}}

	target := &PairInput{
		Production: prodSig(e, "h1", nil, &models.ProductionPayload{
			Paths:   []string{"src/orders.ts"},
			Exports: []string{"createOrder"},
			Symbols: []string{"createOrder"},
			Imports: []string{"./db/client"},
		}),
		Tests: &models.ChannelSignature{Channel: models.ChannelTests, Tests: testsPayload},
		Docs:  &models.ChannelSignature{Channel: models.ChannelDocs, Docs: docsPayload},
	}
	candidate := &PairInput{
		Production: prodSig(e, "h2", nil, &models.ProductionPayload{
			Paths:   []string{"lib/billing.py"},
			Exports: []string{"charge_card"},
			Symbols: []string{"charge_card"},
			Imports: []string{"stripe"},
		}),
		Tests: &models.ChannelSignature{Channel: models.ChannelTests, Tests: testsPayload},
		Docs:  &models.ChannelSignature{Channel: models.ChannelDocs, Docs: docsPayload},
	}

	res, err := s.Score(target, candidate, true)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Signals.TestsIntent)
	assert.Equal(t, 1.0, res.Signals.DocsStruct)
	assert.Equal(t, 0.0, res.ProdScore)
	assert.InDelta(t, th.Caps.Tests+th.Caps.Docs, res.FinalScore, 1e-9,
		"side channels contribute at most their caps")
	assert.Equal(t, models.CategoryCompeting, res.Category,
		"identical tests with no shared production is a competing implementation")
}

func TestScoreRelated(t *testing.T) {
	s, e := newScorer()

	// Shared paths and imports, everything else present but disjoint:
	// enough for the review-attention threshold, not for a same-feature
	// verdict (no corroborating signal clears the supporting minimum).
	target := &PairInput{
		Production: prodSig(e, "h1", nil, &models.ProductionPayload{
			Paths:   []string{"src/orders.ts"},
			Exports: []string{"createOrder"},
			Symbols: []string{"createOrder"},
			Imports: []string{"./db/client"},
		}),
		Tests: &models.ChannelSignature{Channel: models.ChannelTests,
			Tests: &models.TestsPayload{Tests: []string{"creates the order"}}},
		Docs: &models.ChannelSignature{Channel: models.ChannelDocs,
			Docs: &models.DocsPayload{Headings: []string{"orders"}}},
	}
	candidate := &PairInput{
		Production: prodSig(e, "h2", nil, &models.ProductionPayload{
			Paths:   []string{"src/orders.ts"},
			Exports: []string{"cancelOrder"},
			Symbols: []string{"cancelOrder"},
			Imports: []string{"./db/client"},
		}),
		Tests: &models.ChannelSignature{Channel: models.ChannelTests,
			Tests: &models.TestsPayload{Tests: []string{"cancels the order"}}},
		Docs: &models.ChannelSignature{Channel: models.ChannelDocs,
			Docs: &models.DocsPayload{Headings: []string{"cancellation"}}},
	}

	res, err := s.Score(target, candidate, true)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryRelated, res.Category)
}

func TestScoreNotRelated(t *testing.T) {
	s, e := newScorer()

	// Every set non-empty and disjoint: nothing to connect the PRs.
	target := &PairInput{
		Production: prodSig(e, "h1", nil, &models.ProductionPayload{
			Paths:   []string{"src/orders.ts"},
			Exports: []string{"createOrder"},
			Symbols: []string{"createOrder"},
			Imports: []string{"./db/client"},
		}),
		Tests: &models.ChannelSignature{Channel: models.ChannelTests,
			Tests: &models.TestsPayload{Tests: []string{"creates the order"}}},
		Docs: &models.ChannelSignature{Channel: models.ChannelDocs,
			Docs: &models.DocsPayload{Headings: []string{"orders"}}},
	}
	candidate := &PairInput{
		Production: prodSig(e, "h2", nil, &models.ProductionPayload{
			Paths:   []string{"lib/billing.py"},
			Exports: []string{"charge_card"},
			Symbols: []string{"charge_card"},
			Imports: []string{"stripe"},
		}),
		Tests: &models.ChannelSignature{Channel: models.ChannelTests,
			Tests: &models.TestsPayload{Tests: []string{"charges the card"}}},
		Docs: &models.ChannelSignature{Channel: models.ChannelDocs,
			Docs: &models.DocsPayload{Headings: []string{"billing"}}},
	}

	res, err := s.Score(target, candidate, true)
	require.NoError(t, err)
	assert.Less(t, res.FinalScore, 0.3)
	assert.Equal(t, models.CategoryNotRelated, res.Category)
}

func TestScoreUncertainOnIncompleteCandidate(t *testing.T) {
	s, e := newScorer()

	target := &PairInput{Production: prodSig(e, "h1", manyShingles("s", 30), &models.ProductionPayload{
		Paths: []string{"src/a.go"},
	})}
	candidate := &PairInput{} // production signature could not be loaded

	res, err := s.Score(target, candidate, false)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryUncertain, res.Category)
}

func TestScoreSameFeature(t *testing.T) {
	s, e := newScorer()
	payload := &models.ProductionPayload{
		Paths:   []string{"src/orders.ts", "src/totals.ts"},
		Exports: []string{"createOrder"},
		Symbols: []string{"createOrder", "taxRate"},
		Imports: []string{"./db/client"},
	}
	testsPayload := &models.TestsPayload{Tests: []string{"creates the order"}}

	// Sets agree but the token streams only partially overlap.
	shared := manyShingles("s", 60)
	target := &PairInput{
		Production: prodSig(e, "h1", append(manyShingles("x", 40), shared...), payload),
		Tests:      &models.ChannelSignature{Channel: models.ChannelTests, Tests: testsPayload},
	}
	candidate := &PairInput{
		Production: prodSig(e, "h2", append(manyShingles("y", 40), shared...), payload),
		Tests:      &models.ChannelSignature{Channel: models.ChannelTests, Tests: testsPayload},
	}

	res, err := s.Score(target, candidate, true)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.ProdScore, 0.55)
	assert.Equal(t, models.CategorySameFeature, res.Category)
}
