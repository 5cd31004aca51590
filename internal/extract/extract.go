// Package extract pulls structured signals out of added/removed diff lines,
// per channel: declaration and import names for production code, suite and
// test names for tests, headings and references for docs. Every output list
// is deduplicated and lexicographically sorted so payloads are deterministic
// for Jaccard comparison and readable in evidence bundles.
package extract

import (
	"sort"
	"strings"

	"github.com/dupehound/dupehound/internal/models"
)

// ProductionSignalExtractor abstracts how production symbols are recovered
// from diff lines. The shipping implementation is regex-based; a
// parser-based one can replace it without touching the scorer.
type ProductionSignalExtractor interface {
	ExtractProduction(lines []string) *models.ProductionPayload
}

// sortedSet materializes a set as a sorted slice. Unordered sets must not
// leak nondeterministic ordering into downstream hashing or evidence.
func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// normalizeName lowercases, strips punctuation, and collapses whitespace so
// "Creates the order" and "creates-the-order" compare equal.
func normalizeName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
