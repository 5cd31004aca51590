package shingle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		line     string
		expected []string
	}{
		{"const total = price * 1.5;", []string{"const", "total", "=", "price", "*", "<NUM>", ";"}},
		{`throw new Error("boom")`, []string{"throw", "new", "Error", "(", "<STR>", ")"}},
		{"a === b && c !== d", []string{"a", "===", "b", "&&", "c", "!==", "d"}},
		{"x => x + 1", []string{"x", "=>", "x", "+", "<NUM>"}},
		{"  indent   collapses  ", []string{"indent", "collapses"}},
		{"", nil},
		{"'unterminated string", []string{"<STR>"}},
		{"count += 2", []string{"count", "+=", "<NUM>"}},
		{"obj?.field ?? fallback", []string{"obj", "?.", "field", "??", "fallback"}},
		{"$jq_style_name2", []string{"$jq_style_name2"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Tokenize(tt.line), "line: %s", tt.line)
	}
}

func TestTokenizeCollapsesLiterals(t *testing.T) {
	// Different literals must tokenize identically.
	a := Tokenize(`log("created order 42")`)
	b := Tokenize(`log("created order 43")`)
	assert.Equal(t, a, b)

	c := Tokenize("retry(3)")
	d := Tokenize("retry(500)")
	assert.Equal(t, c, d)
}

func TestShingles(t *testing.T) {
	tokens := []string{"a", "b", "c", "d"}

	set := Shingles(tokens, 3)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "a\x1fb\x1fc")
	assert.Contains(t, set, "b\x1fc\x1fd")

	// Fewer tokens than k is an empty set, not an error.
	assert.Empty(t, Shingles([]string{"a", "b"}, 3))
	assert.Empty(t, Shingles(nil, 3))
	assert.Empty(t, Shingles(tokens, 0))
}

func TestShinglesDeterministic(t *testing.T) {
	lines := []string{"func Add(a, b int) int {", "return a + b", "}"}
	a := Shingles(TokenizeLines(lines), KCode)
	b := Shingles(TokenizeLines(lines), KCode)
	assert.Equal(t, a, b)
}
