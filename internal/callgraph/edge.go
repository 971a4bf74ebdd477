// Package callgraph implements the reference/call-graph harvester: the
// walk of all open documents to symbols, cursor-column resolution,
// references/definition fan-out, and edge assembly — including
// retry-on-stall handling for language servers that stop responding.
package callgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Relation labels an invocation edge's provenance.
type Relation string

const (
	// RelationInvoke marks an edge discovered via textDocument/references.
	RelationInvoke Relation = "invoke"
	// RelationCalled marks an edge discovered via the definition-based
	// call-graph variant (spec.md §4.5.5).
	RelationCalled Relation = "called"
)

// Location is one endpoint of an edge: a workspace-relative path, a
// one-based line number, and a qualified name (possibly empty when no
// enclosing symbol could be resolved).
type Location struct {
	RelPath string
	Line    int // one-based
	Name    string
}

// String renders a location as "<relpath>:<line>:<name>" (spec.md §6).
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%s", l.RelPath, l.Line, l.Name)
}

// Edge is a directed invocation relationship between a reference (or call)
// site and a definition site.
type Edge struct {
	Caller   Location
	Relation Relation
	Callee   Location
}

// String renders an edge in the output format from spec.md §6:
// "<relpath>:<line>:<name>\t<relation>\t<relpath>:<line>:<name>".
func (e Edge) String() string {
	return fmt.Sprintf("%s\t%s\t%s", e.Caller, e.Relation, e.Callee)
}

// key is the deduplication identity for an edge: full identity including
// relation, so an invoke edge and a called edge between the same two
// points are tracked separately.
func (e Edge) key() string {
	return e.Caller.String() + "\x00" + string(e.Relation) + "\x00" + e.Callee.String()
}

// EdgeSet is a deduplicated, order-preserving collection of edges.
type EdgeSet struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	edges []Edge
}

// NewEdgeSet returns an empty EdgeSet.
func NewEdgeSet() *EdgeSet {
	return &EdgeSet{seen: make(map[string]struct{})}
}

// Add inserts e if not already present. Returns true if e was newly added.
func (s *EdgeSet) Add(e Edge) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := e.key()
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	s.edges = append(s.edges, e)
	return true
}

// Len returns the number of distinct edges added so far.
func (s *EdgeSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

// Edges returns a snapshot of all edges in insertion order.
func (s *EdgeSet) Edges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// excludedPathSubstrings are the path filters applied to reference sites
// before an edge is kept (spec.md §4.5.4).
var excludedPathSubstrings = []string{"test", "tests", "docs", "__init__.py", "cli.py"}

// isFilteredPath reports whether relPath matches one of the excluded
// patterns and should be dropped from the edge set.
func isFilteredPath(relPath string) bool {
	lower := strings.ToLower(relPath)
	for _, pat := range excludedPathSubstrings {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}
