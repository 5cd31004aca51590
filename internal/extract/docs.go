package extract

import (
	"regexp"
	"strings"

	"github.com/dupehound/dupehound/internal/models"
)

var (
	headingRe = regexp.MustCompile(`^\s*(#{1,6})\s+(.+)$`)
	fenceRe   = regexp.MustCompile("^\\s*```([A-Za-z0-9_+-]+)")
	refRe     = regexp.MustCompile(`#(\d+)\b`)
)

// ExtractDocs recovers the documentation-structure signal from
// added/removed lines: heading text, fenced-code-block language tags, and
// issue/PR number references.
func ExtractDocs(lines []string) *models.DocsPayload {
	headings := make(map[string]struct{})
	fences := make(map[string]struct{})
	refs := make(map[string]struct{})

	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			if name := normalizeName(m[2]); name != "" {
				headings[name] = struct{}{}
			}
		}
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			fences[strings.ToLower(m[1])] = struct{}{}
		}
		for _, m := range refRe.FindAllStringSubmatch(line, -1) {
			refs["#"+m[1]] = struct{}{}
		}
	}

	return &models.DocsPayload{
		Headings:   sortedSet(headings),
		FenceLangs: sortedSet(fences),
		Refs:       sortedSet(refs),
	}
}

// DocTokens flattens the payload into the token list fed to the k=3
// shingler for the docs-channel MinHash.
func DocTokens(p *models.DocsPayload) []string {
	var tokens []string
	for _, h := range p.Headings {
		tokens = append(tokens, strings.Fields(h)...)
	}
	tokens = append(tokens, p.FenceLangs...)
	tokens = append(tokens, p.Refs...)
	return tokens
}
