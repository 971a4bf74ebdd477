package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codegraph/internal/lsp"
)

func symbolAt(name string, startLine int, kind lsp.SymbolKind) lsp.Symbol {
	return lsp.Symbol{
		Name: name,
		Kind: kind,
		Range: lsp.Range{
			Start: lsp.Position{Line: startLine, Character: 0},
			End:   lsp.Position{Line: startLine, Character: 0},
		},
	}
}

func TestResolveCursor_PlainFunction(t *testing.T) {
	lines := []string{
		"def foo(x):",
		"    return x",
	}
	line, ch, ok := resolveCursor(lines, symbolAt("foo", 0, lsp.SymbolKindFunction))
	assert.True(t, ok)
	assert.Equal(t, 0, line)
	assert.Equal(t, 4, ch)
}

func TestResolveCursor_SkipsDecorator(t *testing.T) {
	lines := []string{
		"@decorator",
		"@another.one",
		"def foo(x):",
		"    return x",
	}
	line, ch, ok := resolveCursor(lines, symbolAt("foo", 0, lsp.SymbolKindFunction))
	assert.True(t, ok)
	assert.Equal(t, 2, line)
	assert.Equal(t, 4, ch)
}

func TestResolveCursor_SkipsLeadingComment(t *testing.T) {
	lines := []string{
		"# a comment about bar",
		"def bar():",
		"    pass",
	}
	line, ch, ok := resolveCursor(lines, symbolAt("bar", 0, lsp.SymbolKindFunction))
	assert.True(t, ok)
	assert.Equal(t, 1, line)
	assert.Equal(t, 4, ch)
}

func TestResolveCursor_StripsBuiltinPrefix(t *testing.T) {
	lines := []string{
		"def len(x):",
		"    pass",
	}
	line, ch, ok := resolveCursor(lines, symbolAt("__builtin___len", 0, lsp.SymbolKindFunction))
	assert.True(t, ok)
	assert.Equal(t, 0, line)
	assert.Equal(t, 4, ch)
}

func TestResolveCursor_NotFoundYieldsNotOK(t *testing.T) {
	lines := []string{
		"something else entirely",
	}
	_, _, ok := resolveCursor(lines, symbolAt("foo", 0, lsp.SymbolKindFunction))
	assert.False(t, ok)
}

func TestResolveCursor_StartOutOfRange(t *testing.T) {
	lines := []string{"def foo():"}
	_, _, ok := resolveCursor(lines, symbolAt("foo", 5, lsp.SymbolKindFunction))
	assert.False(t, ok)
}
