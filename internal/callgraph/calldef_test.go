package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/lsp"
)

func TestFindCallSites_SkipsFirstMatchAsOwnSignature(t *testing.T) {
	body := []string{
		"def caller():",
		"    helper()",
		"    other(1, 2)",
	}
	sites := findCallSites(body, 10)
	require.Len(t, sites, 2)
	assert.Equal(t, "helper", sites[0].name)
	assert.Equal(t, "other", sites[1].name)
	assert.Equal(t, 11, sites[0].line)
}

func TestFindCallSites_NoCallsBeyondSignature(t *testing.T) {
	body := []string{"def caller():", "    pass"}
	sites := findCallSites(body, 0)
	assert.Empty(t, sites)
}

func TestDedupeCallSites_CollapsesSharedPosition(t *testing.T) {
	sites := []callSite{
		{name: "foo", line: 1, character: 4},
		{name: "foo", line: 1, character: 4},
		{name: "bar", line: 2, character: 4},
	}
	deduped := dedupeCallSites(sites)
	assert.Len(t, deduped, 2)
}

func TestExtractBody_InclusiveRange(t *testing.T) {
	lines := []string{"a", "b", "c", "d"}
	body := extractBody(lines, lsp.Range{Start: lsp.Position{Line: 1}, End: lsp.Position{Line: 2}})
	assert.Equal(t, []string{"b", "c"}, body)
}

func TestExtractBody_ClampsOutOfRange(t *testing.T) {
	lines := []string{"a", "b"}
	body := extractBody(lines, lsp.Range{Start: lsp.Position{Line: 0}, End: lsp.Position{Line: 10}})
	assert.Equal(t, []string{"a", "b"}, body)
}

func TestExtractBody_EmptyWhenStartBeyondLines(t *testing.T) {
	lines := []string{"a"}
	body := extractBody(lines, lsp.Range{Start: lsp.Position{Line: 5}, End: lsp.Position{Line: 6}})
	assert.Nil(t, body)
}
