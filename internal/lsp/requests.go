package lsp

import (
	"context"
	"time"
)

// DocumentSymbol fans a textDocument/documentSymbol request out to the
// server and normalizes either wire shape (hierarchical DocumentSymbol or
// flat SymbolInformation) into []Symbol. An empty uri is a programmer
// error (spec.md §4.2.6).
func (c *Client) DocumentSymbol(ctx context.Context, uri string) ([]Symbol, error) {
	if uri == "" {
		return nil, &InvalidArgumentError{Op: "DocumentSymbol", Reason: "empty uri"}
	}

	var raw []documentSymbolRaw
	if err := c.call(ctx, "textDocument/documentSymbol", documentSymbolParams{
		TextDocument: textDocumentIdentifier{URI: uri},
	}, &raw, 0); err != nil {
		return nil, err
	}

	symbols := make([]Symbol, 0, len(raw))
	for _, r := range raw {
		symbols = append(symbols, normalizeSymbol(r))
	}
	return symbols, nil
}

// References issues textDocument/references for the identifier at
// (line, character). includeDeclaration is always false (spec.md §4.2.6).
// The returned ReferencesResult echoes the request parameters and timing
// so the harvester can correlate results and report progress without a
// wider response shape (spec.md §9 design note).
func (c *Client) References(ctx context.Context, uri string, line, character int, name string, timeout time.Duration) (*ReferencesResult, error) {
	if uri == "" {
		return nil, &InvalidArgumentError{Op: "References", Reason: "empty uri"}
	}
	if line < 0 || character < 0 {
		return nil, &InvalidArgumentError{Op: "References", Reason: "negative coordinates"}
	}

	start := time.Now()
	var locations []Location
	err := c.call(ctx, "textDocument/references", referencesParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position:     Position{Line: line, Character: character},
		Context:      referenceContext{IncludeDeclaration: false},
	}, &locations, timeout)
	duration := time.Since(start).Seconds()

	if err != nil {
		return nil, err
	}

	return &ReferencesResult{
		URI: uri, Line: line, Character: character, Name: name,
		Locations: locations, Duration: duration,
	}, nil
}

// Definition issues textDocument/definition for (line, character).
// Negative coordinates are a programmer error (spec.md §4.2.6).
func (c *Client) Definition(ctx context.Context, uri string, line, character int, timeout time.Duration) ([]Location, error) {
	if uri == "" {
		return nil, &InvalidArgumentError{Op: "Definition", Reason: "empty uri"}
	}
	if line < 0 || character < 0 {
		return nil, &InvalidArgumentError{Op: "Definition", Reason: "negative coordinates"}
	}

	var locations []Location
	if err := c.call(ctx, "textDocument/definition", textDocumentPositionParams{
		TextDocument: textDocumentIdentifier{URI: uri},
		Position:     Position{Line: line, Character: character},
	}, &locations, timeout); err != nil {
		return nil, err
	}
	return locations, nil
}
