// Package classifier assigns every changed file to exactly one channel:
// production, tests, docs, or meta. Channel assignment happens before any
// similarity is computed, so misclassification here poisons everything
// downstream; the precedence order is a deliberate policy, not incidental.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/dupehound/dupehound/internal/config"
	"github.com/dupehound/dupehound/internal/models"
)

// Classifier matches paths against compiled glob rules in precedence order:
// meta, tests, docs, then production as the fallback. Agent-exhaust paths
// must never count as tests or docs, and conventional test directories must
// not fall through to production even when they carry doc-like extensions.
type Classifier struct {
	meta  []glob.Glob
	tests []glob.Glob
	docs  []glob.Glob

	sourceExts    map[string]bool
	testFramework map[string]bool
}

// Test-runner entry points that mark colocated unit tests under src/.
var testCallRe = regexp.MustCompile(`\b(?:describe|it|test)\s*\(\s*["'` + "`" + `]`)

var importRe = regexp.MustCompile(`(?:from\s+|require\s*\(\s*|import\s+)["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`)

// New compiles the rule set. An invalid glob is a fatal config error.
func New(rules *config.ClassificationRules) (*Classifier, error) {
	c := &Classifier{
		sourceExts:    make(map[string]bool),
		testFramework: make(map[string]bool),
	}

	var err error
	if c.meta, err = compileGlobs(rules.Meta); err != nil {
		return nil, fmt.Errorf("meta rules: %w", err)
	}
	if c.tests, err = compileGlobs(rules.Tests); err != nil {
		return nil, fmt.Errorf("tests rules: %w", err)
	}
	if c.docs, err = compileGlobs(rules.Docs); err != nil {
		return nil, fmt.Errorf("docs rules: %w", err)
	}

	for _, ext := range rules.Refinement.SourceExtensions {
		c.sourceExts[strings.ToLower(ext)] = true
	}
	for _, mod := range rules.Refinement.TestFrameworkModules {
		c.testFramework[strings.ToLower(mod)] = true
	}

	return c, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile glob %q: %w", pattern, err)
		}
		matchers = append(matchers, g)

		// "**/x" requires at least one separator under gobwas semantics, so
		// a top-level file would escape the rule; compile the bare suffix too.
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			bare, err := glob.Compile(rest, '/')
			if err != nil {
				return nil, fmt.Errorf("compile glob %q: %w", rest, err)
			}
			matchers = append(matchers, bare)
		}
	}
	return matchers, nil
}

// Classify assigns the channel for a path. First match wins in the fixed
// precedence order meta > tests > docs > production.
func (c *Classifier) Classify(path string) models.Channel {
	path = strings.TrimPrefix(path, "./")

	if matchAny(c.meta, path) {
		return models.ChannelMeta
	}
	if matchAny(c.tests, path) {
		return models.ChannelTests
	}
	if matchAny(c.docs, path) {
		return models.ChannelDocs
	}
	return models.ChannelProduction
}

// ClassifyFile classifies by path, then refines production-classified source
// files by patch content: a file whose added lines call test-runner entry
// points or import a known test framework is a colocated test, not
// production code.
func (c *Classifier) ClassifyFile(file *models.ChangedFile) models.Channel {
	channel := c.Classify(file.Path)
	if channel != models.ChannelProduction {
		return channel
	}
	if !c.isSourceFile(file.Path) || file.Patch == "" {
		return channel
	}
	if c.looksLikeTest(file.Patch) {
		return models.ChannelTests
	}
	return channel
}

func (c *Classifier) isSourceFile(path string) bool {
	dot := strings.LastIndex(path, ".")
	if dot == -1 {
		return false
	}
	return c.sourceExts[strings.ToLower(path[dot:])]
}

// looksLikeTest inspects added/removed diff lines only; context lines would
// let surrounding test code reclassify a production change.
func (c *Classifier) looksLikeTest(patch string) bool {
	for _, line := range strings.Split(patch, "\n") {
		if len(line) == 0 || (line[0] != '+' && line[0] != '-') {
			continue
		}
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		content := line[1:]

		if testCallRe.MatchString(content) {
			return true
		}
		for _, m := range importRe.FindAllStringSubmatch(content, -1) {
			if c.testFramework[strings.ToLower(m[1])] {
				return true
			}
		}
	}
	return false
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
