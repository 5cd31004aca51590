// Package output renders ranked analysis results for humans. The engine
// supplies ranked data; whoever posts it (status check, dashboard, CLI)
// owns the delivery.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dupehound/dupehound/internal/models"
)

// maxSummaryLen bounds the posted summary; status-check surfaces truncate
// hard, so we truncate first and say so.
const maxSummaryLen = 4000

// Summary builds the capped human-readable result block for one run.
// Only surfaceable edges appear: a candidate below every category line or
// without evidence is never shown, no matter its raw score.
func Summary(run *models.AnalysisRun, edges []*models.ScoredEdge, maxCandidates int) string {
	var sb strings.Builder

	surfaced := Surfaceable(edges)
	if len(surfaced) == 0 {
		fmt.Fprintf(&sb, "No likely duplicates found for #%d.\n", run.PRNumber)
	} else {
		shown := surfaced
		if len(shown) > maxCandidates {
			shown = shown[:maxCandidates]
		}
		fmt.Fprintf(&sb, "Top %d candidate(s) for #%d:\n", len(shown), run.PRNumber)
		for _, e := range shown {
			fmt.Fprintf(&sb, "  #%d %s %.2f", e.OtherPR, e.Category, e.FinalScore)
			if len(e.Evidence.Paths) > 0 {
				fmt.Fprintf(&sb, " — overlapping paths: %s", strings.Join(e.Evidence.Paths, ", "))
			} else if len(e.Evidence.Tests) > 0 {
				fmt.Fprintf(&sb, " — overlapping tests: %s", strings.Join(e.Evidence.Tests, ", "))
			}
			sb.WriteByte('\n')
		}
	}

	if run.Degraded() {
		sb.WriteString("Note: results may be incomplete (")
		sb.WriteString(strings.Join(run.DegradedReasons, "; "))
		sb.WriteString(")\n")
	}

	out := sb.String()
	if len(out) > maxSummaryLen {
		out = out[:maxSummaryLen-len("\n… truncated")] + "\n… truncated"
	}
	return out
}

// Surfaceable filters to edges a reader should see: a category above
// NOT_RELATED and a non-empty evidence bundle. Input order (rank) is kept.
func Surfaceable(edges []*models.ScoredEdge) []*models.ScoredEdge {
	var out []*models.ScoredEdge
	for _, e := range edges {
		if e.Category == models.CategoryNotRelated {
			continue
		}
		if e.Evidence.Empty() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// WriteReport prints the detailed per-edge breakdown for CLI use.
func WriteReport(w io.Writer, run *models.AnalysisRun, edges []*models.ScoredEdge) {
	fmt.Fprintf(w, "Analysis %s — %s#%d @ %s\n", run.ID, run.RepoID, run.PRNumber, shortSHA(run.HeadSHA))
	fmt.Fprintf(w, "versions: signature=%d algorithm=%d config=%s\n",
		run.SignatureVersion, run.AlgorithmVersion, run.ConfigVersion)
	fmt.Fprintf(w, "candidates: %d, edges: %d\n", run.CandidateCount, run.EdgeCount)

	for _, e := range Surfaceable(edges) {
		s := e.Signals
		fmt.Fprintf(w, "\n#%d (%s) — %s, score %.3f\n", e.OtherPR, shortSHA(e.OtherSHA), e.Category, e.FinalScore)
		fmt.Fprintf(w, "  retrieved via: %s\n", joinSources(e.Provenance))
		fmt.Fprintf(w, "  signals: exact=%.0f minhash=%.3f paths=%.3f exports=%.3f symbols=%.3f imports=%.3f tests=%.3f docs=%.3f\n",
			s.ExactHash, s.ProdMinhash, s.ProdPaths, s.ProdExports, s.ProdSymbols, s.ProdImports, s.TestsIntent, s.DocsStruct)
		writeList(w, "paths", e.Evidence.Paths)
		writeList(w, "exports", e.Evidence.Exports)
		writeList(w, "symbols", e.Evidence.Symbols)
		writeList(w, "tests", e.Evidence.Tests)
		writeList(w, "suites", e.Evidence.Suites)
		writeList(w, "headings", e.Evidence.Headings)
	}

	if run.Degraded() {
		fmt.Fprintf(w, "\ndegraded: %s\n", strings.Join(run.DegradedReasons, "; "))
	}
}

func writeList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(items, ", "))
}

func joinSources(sources []models.RetrievalSource) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
