package callgraph

import (
	"strings"

	"codegraph/internal/lsp"
)

// resolveCursor computes the correct (line, character) to place the LSP
// cursor on for a references request against sym, per spec.md §4.5.2. The
// symbol's own start.character is frequently wrong — it may point at a
// "def"/"async"/"class" keyword, a decorator, or an indentation offset —
// so the bare name is relocated inside the symbol's own source lines.
//
// lines is the full document split on "\n"; line is zero-based throughout,
// matching LSP's Position convention.
func resolveCursor(lines []string, sym lsp.Symbol) (line, character int, ok bool) {
	start := sym.Range.Start.Line
	if start < 0 || start >= len(lines) {
		return 0, 0, false
	}

	cur := start
	for cur < len(lines) && isCommentOrDecorator(lines[cur]) {
		cur++
	}
	if cur >= len(lines) {
		return 0, 0, false
	}

	name := stripBuiltinPrefix(sym.Name)
	idx := strings.Index(lines[cur], name)
	if idx < 0 {
		return 0, 0, false
	}
	return cur, idx, true
}

// isCommentOrDecorator reports whether line, once its leading indent is
// stripped, begins with "#" (comment) or "@" (decorator).
func isCommentOrDecorator(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return false
	}
	return trimmed[0] == '#' || trimmed[0] == '@'
}
