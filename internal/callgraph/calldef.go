package callgraph

import (
	"context"
	"regexp"
	"strings"

	"codegraph/internal/lsp"
	"codegraph/internal/scheduler"
	"codegraph/internal/workspace"
)

// callPattern matches a bare identifier immediately followed by "(",
// spec.md §4.5.5's intentionally lossy call-site scanner: it will also
// match comments and string contents, which the subsequent definition
// lookup discards by simply failing to resolve.
var callPattern = regexp.MustCompile(`(\w+)\s*\(`)

// callSite is one candidate callee name found inside a function body, with
// its estimated position relative to the body's containing document.
type callSite struct {
	name      string
	line      int
	character int
}

// extractBody returns the lines of content spanned by r, inclusive.
func extractBody(lines []string, r lsp.Range) []string {
	start, end := r.Start.Line, r.End.Line
	if start < 0 {
		start = 0
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if start > end || start >= len(lines) {
		return nil
	}
	return lines[start : end+1]
}

// findCallSites scans body with callPattern, skips the first match (the
// enclosing symbol's own name, which always appears on its signature
// line), and returns one callSite per remaining match with its position
// estimated relative to the body's start line (spec.md §4.5.5).
func findCallSites(body []string, bodyStartLine int) []callSite {
	var sites []callSite
	first := true
	for lineOffset, line := range body {
		for _, m := range callPattern.FindAllStringSubmatchIndex(line, -1) {
			name := line[m[2]:m[3]]
			if first {
				first = false
				continue
			}
			sites = append(sites, callSite{
				name:      name,
				line:      bodyStartLine + lineOffset,
				character: m[2],
			})
		}
	}
	return sites
}

// dedupeCallSites collapses call sites sharing a (line, character) position
// key within one seed's list; sites at the same column on different lines
// have different keys and are all kept.
func dedupeCallSites(sites []callSite) []callSite {
	seen := make(map[workKey]bool, len(sites))
	var out []callSite
	for _, s := range sites {
		k := workKey{line: s.line, character: s.character}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

// HarvestCalls drives the definition-based call-graph variant (spec.md
// §4.5.5): for every qualifying symbol's body, find candidate callee
// identifiers, fan out `definition` requests, and record a `called` edge
// for each that resolves.
func HarvestCalls(ctx context.Context, ws *workspace.Workspace, cfg Config) (*EdgeSet, error) {
	edges := NewEdgeSet()

	uris := ws.Client.OpenURIs()
	for _, uri := range uris {
		symbols, err := ws.Client.DocumentSymbol(ctx, uri)
		if err != nil {
			continue
		}
		content := ws.Client.ReadFile(uri)
		seeds, err := SelectSymbols(uri, content, symbols)
		if err != nil {
			continue
		}
		lines := strings.Split(content, "\n")

		for _, seed := range seeds {
			harvestCallsForSeed(ctx, ws, uri, seed, lines, edges, cfg)
		}
	}

	return edges, nil
}

func harvestCallsForSeed(ctx context.Context, ws *workspace.Workspace, uri string, seed Seed, lines []string, edges *EdgeSet, cfg Config) {
	callerRelPath := ws.Relativize(uri)
	if isFilteredPath(callerRelPath) {
		return
	}

	body := extractBody(lines, seed.Range)
	sites := dedupeCallSites(findCallSites(body, seed.Range.Start.Line))
	if len(sites) == 0 {
		return
	}

	tasks := make([]scheduler.Task[[]lsp.Location], len(sites))
	for i, site := range sites {
		site := site
		tasks[i] = func(ctx context.Context) ([]lsp.Location, error) {
			return ws.Client.Definition(ctx, uri, site.line, site.character, cfg.DefaultTimeout)
		}
	}
	results := scheduler.Run(ctx, tasks, scheduler.Options{Concurrency: concurrencyOr(cfg.Concurrency, 20)})

	for i, r := range results {
		if r.Err != nil {
			continue
		}
		for _, loc := range r.Value {
			calleeRelPath := ws.Relativize(loc.URI)
			if isFilteredPath(calleeRelPath) {
				continue
			}
			edge := Edge{
				Caller:   Location{RelPath: callerRelPath, Line: seed.Line + 1, Name: seed.Qualified},
				Relation: RelationCalled,
				Callee:   Location{RelPath: calleeRelPath, Line: loc.Range.Start.Line + 1, Name: sites[i].name},
			}
			if edges.Add(edge) {
				logProgress(edges.Len())
			}
		}
	}
}
