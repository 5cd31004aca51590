// Package canonical produces a normalized, metadata-stripped rendering of a
// PR's production patch and its SHA-256 hash, used for exact-duplicate
// detection robust to rebase and context drift.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/dupehound/dupehound/internal/models"
)

// ChangedLines returns the added/removed lines of a unified-diff patch with
// the +/- marker and trailing whitespace stripped, in original order. Diff
// metadata (hunk headers, file headers, "no newline" markers) is excluded.
// A patch the parser rejects is handled by a line scanner so a truncated
// patch still yields its intact lines.
func ChangedLines(patch string) []string {
	if patch == "" {
		return nil
	}

	hunks, err := diff.ParseHunks([]byte(patch))
	if err != nil {
		return scanChangedLines(patch)
	}

	var lines []string
	for _, hunk := range hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case '+', '-':
				lines = append(lines, strings.TrimRight(line[1:], " \t"))
			}
		}
	}
	return lines
}

// scanChangedLines is the fallback for patches diff.ParseHunks cannot
// swallow (GitHub truncates large patches mid-hunk).
func scanChangedLines(patch string) []string {
	var lines []string
	for _, line := range strings.Split(patch, "\n") {
		if len(line) == 0 {
			continue
		}
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") ||
			strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "diff ") ||
			strings.HasPrefix(line, "index ") || strings.HasPrefix(line, `\ No newline`) {
			continue
		}
		switch line[0] {
		case '+', '-':
			lines = append(lines, strings.TrimRight(line[1:], " \t"))
		}
	}
	return lines
}

// Canonicalize renders the canonical text for a set of changed files and its
// SHA-256 hex hash. Files are sorted by path so the hash is independent of
// API iteration order; hunk-header line numbers never reach the hash, so two
// patches differing only by rebase offsets hash identically.
//
// An input with no added/removed lines returns an empty hash: an empty
// production diff must never exact-match anything.
func Canonicalize(files []models.ChangedFile) (text string, hash string) {
	sorted := make([]models.ChangedFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var sb strings.Builder
	hasContent := false
	for _, f := range sorted {
		lines := ChangedLines(f.Patch)
		if len(lines) == 0 {
			continue
		}
		hasContent = true
		sb.WriteString("file:")
		sb.WriteString(f.Path)
		sb.WriteByte('\n')
		for _, line := range lines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	if !hasContent {
		return "", ""
	}

	text = strings.TrimSuffix(sb.String(), "\n")
	sum := sha256.Sum256([]byte(text))
	return text, hex.EncodeToString(sum[:])
}
