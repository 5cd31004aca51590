package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dupehound/dupehound/internal/config"
	"github.com/dupehound/dupehound/internal/models"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(config.DefaultRules())
	require.NoError(t, err)
	return c
}

func TestClassifyPrecedence(t *testing.T) {
	c := newClassifier(t)

	tests := []struct {
		path     string
		expected models.Channel
	}{
		// meta wins over everything
		{".cursor/rules.md", models.ChannelMeta},
		{".claude/settings.json", models.ChannelMeta},
		{"logs/agent-trace.json", models.ChannelMeta},
		{"package-lock.json", models.ChannelMeta},
		{"go.sum", models.ChannelMeta},
		{".github/workflows/ci.yml", models.ChannelMeta},

		// tests win over docs: a markdown fixture in a test tree is tests
		{"tests/fixtures/readme.md", models.ChannelTests},
		{"src/order_test.go", models.ChannelTests},
		{"src/components/__tests__/Button.tsx", models.ChannelTests},
		{"src/api/client.spec.ts", models.ChannelTests},
		{"spec/models/user_spec.rb", models.ChannelTests},

		// docs
		{"README.md", models.ChannelDocs},
		{"docs/guide/setup.rst", models.ChannelDocs},
		{"CHANGELOG.md", models.ChannelDocs},
		{"LICENSE", models.ChannelDocs},

		// production fallback
		{"src/api/client.ts", models.ChannelProduction},
		{"internal/server/server.go", models.ChannelProduction},
		{"Makefile", models.ChannelProduction},
		{"src/testimonials.ts", models.ChannelProduction},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, c.Classify(tt.path), "path: %s", tt.path)
	}
}

func TestClassifyFileRefinement(t *testing.T) {
	c := newClassifier(t)

	// A source file under src/ whose added lines call test entry points is
	// a colocated test.
	file := &models.ChangedFile{
		Path:  "src/utils/math.ts",
		Patch: "@@ -1,0 +1,3 @@\n+describe(\"math\", () => {\n+  it(\"adds\", () => {})\n+})\n",
	}
	assert.Equal(t, models.ChannelTests, c.ClassifyFile(file))

	// Importing a test framework also promotes.
	file = &models.ChangedFile{
		Path:  "src/utils/math.ts",
		Patch: "@@ -1,0 +1,1 @@\n+import { expect } from \"vitest\"\n",
	}
	assert.Equal(t, models.ChannelTests, c.ClassifyFile(file))

	// Plain production content stays production.
	file = &models.ChangedFile{
		Path:  "src/utils/math.ts",
		Patch: "@@ -1,0 +1,1 @@\n+export function add(a, b) { return a + b }\n",
	}
	assert.Equal(t, models.ChannelProduction, c.ClassifyFile(file))
}

func TestClassifyFileRefinementScope(t *testing.T) {
	c := newClassifier(t)

	// Content refinement never touches context lines.
	file := &models.ChangedFile{
		Path:  "src/app.ts",
		Patch: "@@ -1,2 +1,3 @@\n describe(\"existing suite\", () => {\n+const x = 1\n })\n",
	}
	assert.Equal(t, models.ChannelProduction, c.ClassifyFile(file))

	// Non-source extensions are never refined.
	file = &models.ChangedFile{
		Path:  "config/settings.yaml",
		Patch: "@@ -1,0 +1,1 @@\n+describe(\"not a test\", fake)\n",
	}
	assert.Equal(t, models.ChannelProduction, c.ClassifyFile(file))

	// Path rules still take precedence over content.
	file = &models.ChangedFile{
		Path:  "docs/examples.md",
		Patch: "@@ -1,0 +1,1 @@\n+it(\"example snippet\", () => {})\n",
	}
	assert.Equal(t, models.ChannelDocs, c.ClassifyFile(file))
}

func TestNewRejectsInvalidGlob(t *testing.T) {
	rules := config.DefaultRules()
	rules.Tests = append(rules.Tests, "[invalid")
	_, err := New(rules)
	assert.Error(t, err)
}
