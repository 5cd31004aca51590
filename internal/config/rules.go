package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dupehound/dupehound/internal/errors"
	"github.com/dupehound/dupehound/internal/models"
)

// ClassificationRules is the first of the two versioned analysis structures.
// Glob lists are evaluated in precedence order (meta, tests, docs); anything
// unmatched falls through to production.
type ClassificationRules struct {
	Version    string          `yaml:"version"`
	Meta       []string        `yaml:"meta"`
	Tests      []string        `yaml:"tests"`
	Docs       []string        `yaml:"docs"`
	Refinement RefinementRules `yaml:"refinement"`
}

// RefinementRules drives content-based promotion of ambiguous source files
// to the tests channel (colocated unit tests under src/).
type RefinementRules struct {
	// Extensions of the source-code family eligible for refinement.
	SourceExtensions []string `yaml:"source_extensions"`
	// Module specifiers whose import marks a file as a test file.
	TestFrameworkModules []string `yaml:"test_framework_modules"`
}

// DefaultRules returns the built-in classification rules.
func DefaultRules() *ClassificationRules {
	return &ClassificationRules{
		Version: "builtin-1",
		Meta: []string{
			".cursor/**", ".claude/**", ".aider*", "**/*trace*", "**/*.log",
			"**/node_modules/**", "**/package-lock.json", "**/yarn.lock",
			"**/pnpm-lock.yaml", "**/go.sum", ".github/workflows/**",
		},
		Tests: []string{
			"**/*_test.go", "**/*.test.*", "**/*.spec.*",
			"test/**", "tests/**", "**/__tests__/**", "**/testdata/**",
			"spec/**", "**/*_spec.rb",
		},
		Docs: []string{
			"**/*.md", "**/*.rst", "**/*.adoc", "**/*.txt",
			"docs/**", "doc/**", "LICENSE*", "CHANGELOG*",
		},
		Refinement: RefinementRules{
			SourceExtensions: []string{
				".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".py", ".rb", ".go",
			},
			TestFrameworkModules: []string{
				"vitest", "jest", "@jest/globals", "mocha", "chai", "ava",
				"tape", "jasmine", "@testing-library/react", "supertest",
				"pytest", "unittest", "testing",
			},
		},
	}
}

// LoadRules reads and validates a classification rules file. The decoder is
// strict: unknown fields are rejected so a typo never silently drops a rule.
func LoadRules(path string) (*ClassificationRules, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical,
			fmt.Sprintf("read rules file %s", path))
	}

	rules := &ClassificationRules{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(rules); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical,
			fmt.Sprintf("parse rules file %s", path))
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate fails fast on the first invalid field.
func (r *ClassificationRules) Validate() error {
	if r.Version == "" {
		return errors.Configf("rules: version is required")
	}
	for _, set := range []struct {
		channel models.Channel
		globs   []string
	}{
		{models.ChannelMeta, r.Meta},
		{models.ChannelTests, r.Tests},
		{models.ChannelDocs, r.Docs},
	} {
		for i, g := range set.globs {
			if g == "" {
				return errors.Configf("rules: %s[%d] is an empty glob", set.channel, i)
			}
		}
	}
	return nil
}
