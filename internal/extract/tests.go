package extract

import (
	"regexp"
	"strings"

	"github.com/dupehound/dupehound/internal/models"
)

var (
	suiteRe   = regexp.MustCompile(`\bdescribe(?:\.only|\.skip|\.each)?\s*\(\s*["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`)
	testRe    = regexp.MustCompile(`\b(?:it|test)(?:\.only|\.skip|\.each)?\s*\(\s*["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`)
	matcherRe = regexp.MustCompile(`\.(to[A-Z][A-Za-z]*)\s*\(`)
	fromRe    = regexp.MustCompile(`\bfrom\s+["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`)
)

// frameworkModules are never a similarity signal: every Jest suite imports
// Jest, so the framework itself would inflate test-intent Jaccard between
// entirely unrelated PRs.
var frameworkModules = map[string]bool{
	"vitest": true, "jest": true, "@jest/globals": true, "mocha": true,
	"chai": true, "ava": true, "tape": true, "jasmine": true,
	"sinon": true, "supertest": true, "enzyme": true,
	"@testing-library/react": true, "@testing-library/dom": true,
	"@testing-library/jest-dom": true, "@testing-library/user-event": true,
	"node:test": true, "assert": true, "node:assert": true,
}

// ExtractTests recovers the test-intent signal from added/removed lines:
// suite names, test names, matcher calls, and the modules under test.
func ExtractTests(lines []string) *models.TestsPayload {
	suites := make(map[string]struct{})
	tests := make(map[string]struct{})
	matchers := make(map[string]struct{})
	imports := make(map[string]struct{})

	for _, line := range lines {
		for _, m := range suiteRe.FindAllStringSubmatch(line, -1) {
			if name := normalizeName(m[1]); name != "" {
				suites[name] = struct{}{}
			}
		}
		for _, m := range testRe.FindAllStringSubmatch(line, -1) {
			if name := normalizeName(m[1]); name != "" {
				tests[name] = struct{}{}
			}
		}
		for _, m := range matcherRe.FindAllStringSubmatch(line, -1) {
			matchers[strings.ToLower(m[1])] = struct{}{}
		}
		for _, m := range fromRe.FindAllStringSubmatch(line, -1) {
			spec := m[1]
			if frameworkModules[strings.ToLower(spec)] {
				continue
			}
			imports[spec] = struct{}{}
		}
	}

	return &models.TestsPayload{
		Suites:   sortedSet(suites),
		Tests:    sortedSet(tests),
		Matchers: sortedSet(matchers),
		Imports:  sortedSet(imports),
	}
}

// TestTokens flattens the payload into the token list fed to the k=3
// shingler for the tests-channel MinHash.
func TestTokens(p *models.TestsPayload) []string {
	var tokens []string
	for _, s := range p.Suites {
		tokens = append(tokens, strings.Fields(s)...)
	}
	for _, t := range p.Tests {
		tokens = append(tokens, strings.Fields(t)...)
	}
	tokens = append(tokens, p.Matchers...)
	tokens = append(tokens, p.Imports...)
	return tokens
}
