// Package shingle turns normalized diff lines into token sequences and
// fixed-size token shingles, the atomic unit of set-similarity estimation.
package shingle

import (
	"strings"
)

const (
	// KCode is the shingle width for production diff token streams.
	KCode = 5
	// KNames is the shingle width for test-intent and doc-structure token
	// lists. Those are names and words, not token streams, so a smaller
	// window carries enough context.
	KNames = 3

	// Separator joins tokens inside a shingle. Unit separator: never
	// produced by the tokenizer, so joined shingles cannot collide.
	Separator = "\x1f"
)

// Placeholder tokens. Literals collapse so that renamed constants and
// reworded strings do not defeat similarity.
const (
	numToken = "<NUM>"
	strToken = "<STR>"
)

// Multi-character operators matched before single characters, longest first.
var multiOps = []string{
	"===", "!==", "...", ">>>", "<<=", ">>=", "**=", "&&=", "||=", "??=",
	"=>", "->", "==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "::", "<<", ">>",
	"?.", "??", "**",
}

// Tokenize splits one normalized line into tokens: identifiers, collapsed
// string/number literals, and operator/punctuation tokens. Everything else
// (stray unicode, shell noise) is dropped.
func Tokenize(line string) []string {
	line = normalize(line)
	var tokens []string

	i := 0
	for i < len(line) {
		c := line[i]

		switch {
		case c == ' ':
			i++

		case isIdentStart(c):
			j := i + 1
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			tokens = append(tokens, line[i:j])
			i = j

		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(line) && (line[j] >= '0' && line[j] <= '9' || line[j] == '.') {
				j++
			}
			tokens = append(tokens, numToken)
			i = j

		case c == '"' || c == '\'' || c == '`':
			// Collapse the whole literal; an unterminated string swallows
			// the rest of the line, which is fine for a single diff line.
			j := i + 1
			for j < len(line) && line[j] != c {
				if line[j] == '\\' && j+1 < len(line) {
					j++
				}
				j++
			}
			if j < len(line) {
				j++
			}
			tokens = append(tokens, strToken)
			i = j

		default:
			if op, n := matchMultiOp(line[i:]); n > 0 {
				tokens = append(tokens, op)
				i += n
				continue
			}
			if isPunct(c) {
				tokens = append(tokens, string(c))
			}
			i++
		}
	}

	return tokens
}

// TokenizeLines tokenizes each line and concatenates the streams.
func TokenizeLines(lines []string) []string {
	var tokens []string
	for _, line := range lines {
		tokens = append(tokens, Tokenize(line)...)
	}
	return tokens
}

// Shingles returns the set of k-grams over tokens, joined with Separator.
// Fewer than k tokens yields an empty set: not an error, just "too small to
// fingerprint".
func Shingles(tokens []string, k int) map[string]struct{} {
	set := make(map[string]struct{})
	if k <= 0 || len(tokens) < k {
		return set
	}
	for i := 0; i+k <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+k], Separator)] = struct{}{}
	}
	return set
}

// normalize trims, collapses internal whitespace runs to one space, and
// leaves literal replacement to the tokenizer.
func normalize(line string) string {
	fields := strings.Fields(line)
	return strings.Join(fields, " ")
}

func matchMultiOp(s string) (string, int) {
	for _, op := range multiOps {
		if strings.HasPrefix(s, op) {
			return op, len(op)
		}
	}
	return "", 0
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func isPunct(c byte) bool {
	switch c {
	case '(', ')', '[', ']', '{', '}', '<', '>', '.', ',', ';', ':',
		'+', '-', '*', '/', '%', '=', '!', '&', '|', '^', '~', '?', '@', '#':
		return true
	}
	return false
}
