package lsp

import "context"

// documentStatus is a document's lifecycle status (spec.md §3).
type documentStatus int

const (
	statusOpen documentStatus = iota
	statusChanged
	statusClosed
)

// documentState is the per-URI state the client tracks: cached text,
// language id, and a monotonically increasing version counter.
type documentState struct {
	uri        string
	content    string
	languageID string
	version    int
	status     documentStatus
}

// DidOpen opens uri with content under languageID. If the URI is already
// open this behaves as DidChange (content replaces, version increments) —
// idempotence for the bootstrap path (spec.md §4.2.4).
func (c *Client) DidOpen(ctx context.Context, uri, content, languageID string) error {
	c.mu.Lock()
	doc, exists := c.documents[uri]
	if exists {
		doc.content = content
		doc.version++
		doc.status = statusChanged
		version := doc.version
		c.mu.Unlock()
		return c.notify(ctx, "textDocument/didChange", didChangeParams{
			TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: version},
			ContentChanges: []textDocumentContentChangeEvent{{Text: content}},
		})
	}

	doc = &documentState{uri: uri, content: content, languageID: languageID, version: 1, status: statusOpen}
	c.documents[uri] = doc
	c.mu.Unlock()

	return c.notify(ctx, "textDocument/didOpen", didOpenParams{
		TextDocument: textDocumentItem{URI: uri, LanguageID: languageID, Version: 1, Text: content},
	})
}

// DidChange updates uri's content and increments its version. A URI not
// yet open behaves as DidOpen with the supplied content — bootstrap
// ordering tolerance (spec.md §4.2.4). languageID is used only in that
// fallback case.
func (c *Client) DidChange(ctx context.Context, uri, content string, languageID string) error {
	c.mu.Lock()
	doc, exists := c.documents[uri]
	if !exists {
		c.mu.Unlock()
		return c.DidOpen(ctx, uri, content, languageID)
	}

	doc.content = content
	doc.version++
	doc.status = statusChanged
	version := doc.version
	c.mu.Unlock()

	return c.notify(ctx, "textDocument/didChange", didChangeParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: version},
		ContentChanges: []textDocumentContentChangeEvent{{Text: content}},
	})
}

// DidClose removes uri's document state entirely. A silent no-op for an
// unknown URI (spec.md §4.2.4, §8 round-trip law).
func (c *Client) DidClose(ctx context.Context, uri string) error {
	c.mu.Lock()
	_, exists := c.documents[uri]
	if !exists {
		c.mu.Unlock()
		return nil
	}
	delete(c.documents, uri)
	c.mu.Unlock()

	return c.notify(ctx, "textDocument/didClose", didCloseParams{
		TextDocument: textDocumentIdentifier{URI: uri},
	})
}

// ReadFile is a read-through cache: it returns the last content the
// client cached for uri, or "" if unknown. Used by the harvester's
// cursor-resolution step instead of re-reading from disk (see
// SPEC_FULL.md's supplemented-features list: the cached buffer, not the
// disk copy, is authoritative for position math).
func (c *Client) ReadFile(uri string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.documents[uri]
	if !ok {
		return ""
	}
	return doc.content
}

// IsOpen reports whether uri currently has open document state.
func (c *Client) IsOpen(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.documents[uri]
	return ok
}

// OpenURIs returns a snapshot of all currently open document URIs.
func (c *Client) OpenURIs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	uris := make([]string, 0, len(c.documents))
	for uri := range c.documents {
		uris = append(uris, uri)
	}
	return uris
}
