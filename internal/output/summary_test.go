package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dupehound/dupehound/internal/models"
)

func run() *models.AnalysisRun {
	return &models.AnalysisRun{
		ID: "run-1", RepoID: "acme/shop", PRNumber: 12, HeadSHA: "abcdef1234567890",
		SignatureVersion: 1, AlgorithmVersion: 1, ConfigVersion: "builtin-1",
	}
}

func scoredEdge(other int, category models.Category, score float64, paths ...string) *models.ScoredEdge {
	return &models.ScoredEdge{
		PRNumber: 12, OtherPR: other, OtherSHA: "fedcba",
		Provenance: []models.RetrievalSource{models.SourcePathOverlap},
		Category:   category, FinalScore: score,
		Evidence: models.Evidence{Paths: paths},
	}
}

func TestSurfaceable(t *testing.T) {
	withEvidence := scoredEdge(2, models.CategoryRelated, 0.4, "src/a.go")
	notRelated := scoredEdge(3, models.CategoryNotRelated, 0.1, "src/a.go")
	noEvidence := scoredEdge(4, models.CategorySameFeature, 0.7)

	out := Surfaceable([]*models.ScoredEdge{withEvidence, notRelated, noEvidence})
	assert.Equal(t, []*models.ScoredEdge{withEvidence}, out)
}

func TestSummary(t *testing.T) {
	edges := []*models.ScoredEdge{
		scoredEdge(2, models.CategorySameChange, 0.98, "src/a.go"),
		scoredEdge(3, models.CategoryRelated, 0.41, "src/b.go"),
	}

	s := Summary(run(), edges, 5)
	assert.Contains(t, s, "#2 SAME_CHANGE 0.98")
	assert.Contains(t, s, "src/a.go")
	assert.Contains(t, s, "#3 RELATED 0.41")
}

func TestSummaryNoCandidates(t *testing.T) {
	s := Summary(run(), nil, 5)
	assert.Contains(t, s, "No likely duplicates found for #12")
}

func TestSummaryDegradedNote(t *testing.T) {
	r := run()
	r.DegradedReasons = []string{"missing patch for src/big.go, extraction skipped"}

	s := Summary(r, nil, 5)
	assert.Contains(t, s, "results may be incomplete")
	assert.Contains(t, s, "src/big.go")
}

func TestSummaryCandidateCap(t *testing.T) {
	edges := []*models.ScoredEdge{
		scoredEdge(2, models.CategoryRelated, 0.5, "src/a.go"),
		scoredEdge(3, models.CategoryRelated, 0.45, "src/a.go"),
		scoredEdge(4, models.CategoryRelated, 0.4, "src/a.go"),
	}

	s := Summary(run(), edges, 2)
	assert.Contains(t, s, "#2")
	assert.Contains(t, s, "#3")
	assert.NotContains(t, s, "#4")
}

func TestSummaryLengthCap(t *testing.T) {
	var edges []*models.ScoredEdge
	long := strings.Repeat("x", 200)
	for i := 0; i < 100; i++ {
		edges = append(edges, scoredEdge(100+i, models.CategoryRelated, 0.5, "src/"+long+".go"))
	}

	s := Summary(run(), edges, 100)
	assert.LessOrEqual(t, len(s), maxSummaryLen)
	assert.Contains(t, s, "truncated")
}
