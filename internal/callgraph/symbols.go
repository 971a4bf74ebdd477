package callgraph

import (
	"fmt"
	"strings"

	"codegraph/internal/lsp"
)

// unexpectedSymbolKindError surfaces a server returning a symbol kind the
// selector has no policy for at a position where a function/method/class
// was expected — spec.md §4.5.1 treats this as a hard server-bug error.
type unexpectedSymbolKindError struct {
	Name string
	Kind lsp.SymbolKind
}

func (e *unexpectedSymbolKindError) Error() string {
	return fmt.Sprintf("callgraph: unexpected symbol kind %s for %q where a definition was expected", e.Kind, e.Name)
}

// seedKinds are the symbol kinds that seed reference requests (spec.md §4.5.1).
var seedKinds = map[lsp.SymbolKind]bool{
	lsp.SymbolKindClass:    true,
	lsp.SymbolKindMethod:   true,
	lsp.SymbolKindFunction: true,
}

// ignoredKinds are explicitly skipped, not treated as server bugs
// (spec.md §3 / §4.5.1).
var ignoredKinds = map[lsp.SymbolKind]bool{
	lsp.SymbolKindVariable:      true,
	lsp.SymbolKindConstant:      true,
	lsp.SymbolKindField:         true,
	lsp.SymbolKindEnum:          true,
	lsp.SymbolKindEnumMember:    true,
	lsp.SymbolKindConstructor:   true,
	lsp.SymbolKindNamespace:     true,
	lsp.SymbolKindProperty:      true,
	lsp.SymbolKindFile:          true,
	lsp.SymbolKindModule:        true,
	lsp.SymbolKindPackage:       true,
	lsp.SymbolKindInterface:     true,
	lsp.SymbolKindString:        true,
	lsp.SymbolKindNumber:        true,
	lsp.SymbolKindBoolean:       true,
	lsp.SymbolKindArray:         true,
	lsp.SymbolKindObject:        true,
	lsp.SymbolKindKey:           true,
	lsp.SymbolKindNull:          true,
	lsp.SymbolKindStruct:        true,
	lsp.SymbolKindEvent:         true,
	lsp.SymbolKindOperator:      true,
	lsp.SymbolKindTypeParameter: true,
}

// Seed is one qualifying symbol ready to be fed into the reference crawl:
// its document URI, the resolved cursor position, its qualified name, and
// its own range (kept for enclosing-function lookups).
type Seed struct {
	URI       string
	Line      int
	Character int
	Name      string
	Qualified string
	Range     lsp.Range
}

// SelectSymbols walks uri's document-symbol tree (including nested
// children) and returns the seeds that qualify for reference crawling,
// per spec.md §4.5.1's keep/skip rules. content is the client's cached
// buffer for uri, used by cursor-column resolution.
func SelectSymbols(uri, content string, symbols []lsp.Symbol) ([]Seed, error) {
	lines := strings.Split(content, "\n")
	var seeds []Seed
	var walk func(sym lsp.Symbol, containerQualified string) error
	walk = func(sym lsp.Symbol, containerQualified string) error {
		qualified := sym.Name
		if containerQualified != "" {
			qualified = containerQualified + "." + sym.Name
		}

		switch {
		case seedKinds[sym.Kind]:
			if qualifies(sym, containerQualified != "") {
				line, character, ok := resolveCursor(lines, sym)
				if ok {
					seeds = append(seeds, Seed{
						URI: uri, Line: line, Character: character,
						Name: sym.Name, Qualified: qualified, Range: sym.Range,
					})
				}
			}
		case ignoredKinds[sym.Kind]:
			// Known non-callable kind, silently skipped.
		default:
			return &unexpectedSymbolKindError{Name: sym.Name, Kind: sym.Kind}
		}

		for _, child := range sym.Children {
			if err := walk(child, qualified); err != nil {
				return err
			}
		}
		return nil
	}

	for _, sym := range symbols {
		if err := walk(sym, ""); err != nil {
			return nil, err
		}
	}
	return seeds, nil
}

// qualifies applies the keep/skip predicate from spec.md §4.5.1, given
// that URI-under-root was already guaranteed by the caller only ever
// enumerating workspace files.
func qualifies(sym lsp.Symbol, nested bool) bool {
	if sym.Name == "main" {
		return false
	}
	if sym.Name == "__init__" && nested {
		return false
	}
	if sym.Name == "(anonymous struct)" {
		return false
	}
	return true
}

// stripBuiltinPrefix removes a leading "__builtin___" marker some
// language servers attach to synthesized symbol names (spec.md §4.5.2).
func stripBuiltinPrefix(name string) string {
	return strings.TrimPrefix(name, "__builtin___")
}
