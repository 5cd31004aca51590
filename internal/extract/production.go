package extract

import (
	"regexp"

	"github.com/dupehound/dupehound/internal/models"
)

// Declaration patterns over single diff lines. Regex over diff lines is a
// deliberate speed/simplicity tradeoff: full syntax-tree parsing needs whole
// files, and a PR patch only carries fragments.
var (
	exportRe = []*regexp.Regexp{
		// export function foo / export default class Foo / export const foo
		regexp.MustCompile(`\bexport\s+(?:default\s+)?(?:async\s+)?(?:function|class|interface|type|enum|const|let|var|abstract\s+class)\s+([A-Za-z_$][A-Za-z0-9_$]*)`),
		// export { foo, bar }
		regexp.MustCompile(`\bexport\s*\{([^}]*)\}`),
		// module.exports.foo = / exports.foo =
		regexp.MustCompile(`\b(?:module\.)?exports\.([A-Za-z_$][A-Za-z0-9_$]*)\s*=`),
		// Go: exported identifiers start uppercase
		regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s+)?([A-Z][A-Za-z0-9_]*)\s*\(`),
		regexp.MustCompile(`^\s*type\s+([A-Z][A-Za-z0-9_]*)\s`),
	}

	declRe = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:function|class|interface|enum)\s+([A-Za-z_$][A-Za-z0-9_$]*)`),
		regexp.MustCompile(`\btype\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=?`),
		regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=`),
		// Python / Ruby
		regexp.MustCompile(`^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)`),
		// Go functions and methods, any visibility
		regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`),
	}

	importRe = []*regexp.Regexp{
		regexp.MustCompile(`\bfrom\s+["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`),
		regexp.MustCompile(`\bimport\s+["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]`),
		regexp.MustCompile(`\brequire\s*\(\s*["'` + "`" + `]([^"'` + "`" + `]+)["'` + "`" + `]\s*\)`),
		// Python
		regexp.MustCompile(`^\s*(?:from|import)\s+([A-Za-z_][A-Za-z0-9_.]*)`),
	}

	exportListSplitRe = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)
)

// RegexExtractor is the default ProductionSignalExtractor.
type RegexExtractor struct{}

// NewRegexExtractor returns the regex-based production extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// ExtractProduction scans added/removed lines for exported names, general
// declaration names, and imported module specifiers. Paths are not filled
// here; the caller owns the file set.
func (x *RegexExtractor) ExtractProduction(lines []string) *models.ProductionPayload {
	exports := make(map[string]struct{})
	symbols := make(map[string]struct{})
	imports := make(map[string]struct{})

	for _, line := range lines {
		for i, re := range exportRe {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				if i == 1 {
					// export list: split into individual names
					for _, name := range exportListSplitRe.FindAllString(m[1], -1) {
						exports[name] = struct{}{}
						symbols[name] = struct{}{}
					}
					continue
				}
				exports[m[1]] = struct{}{}
				symbols[m[1]] = struct{}{}
			}
		}
		for _, re := range declRe {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				symbols[m[1]] = struct{}{}
			}
		}
		for _, re := range importRe {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				imports[m[1]] = struct{}{}
			}
		}
	}

	return &models.ProductionPayload{
		Exports: sortedSet(exports),
		Symbols: sortedSet(symbols),
		Imports: sortedSet(imports),
	}
}
