package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocation_String(t *testing.T) {
	loc := Location{RelPath: "pkg/foo.py", Line: 12, Name: "foo"}
	assert.Equal(t, "pkg/foo.py:12:foo", loc.String())
}

func TestEdge_String(t *testing.T) {
	e := Edge{
		Caller:   Location{RelPath: "a.py", Line: 1, Name: "caller"},
		Relation: RelationInvoke,
		Callee:   Location{RelPath: "b.py", Line: 2, Name: "callee"},
	}
	assert.Equal(t, "a.py:1:caller\tinvoke\tb.py:2:callee", e.String())
}

func TestEdgeSet_DedupesIdenticalEdges(t *testing.T) {
	s := NewEdgeSet()
	e := Edge{
		Caller:   Location{RelPath: "a.py", Line: 1, Name: "c"},
		Relation: RelationInvoke,
		Callee:   Location{RelPath: "b.py", Line: 2, Name: "d"},
	}
	assert.True(t, s.Add(e))
	assert.False(t, s.Add(e))
	assert.Equal(t, 1, s.Len())
}

func TestEdgeSet_TracksInvokeAndCalledSeparately(t *testing.T) {
	s := NewEdgeSet()
	base := Edge{
		Caller: Location{RelPath: "a.py", Line: 1, Name: "c"},
		Callee: Location{RelPath: "b.py", Line: 2, Name: "d"},
	}
	invoke := base
	invoke.Relation = RelationInvoke
	called := base
	called.Relation = RelationCalled

	assert.True(t, s.Add(invoke))
	assert.True(t, s.Add(called))
	assert.Equal(t, 2, s.Len())
}

func TestEdgeSet_EdgesPreservesInsertionOrder(t *testing.T) {
	s := NewEdgeSet()
	first := Edge{Caller: Location{Name: "a"}, Callee: Location{Name: "b"}, Relation: RelationInvoke}
	second := Edge{Caller: Location{Name: "c"}, Callee: Location{Name: "d"}, Relation: RelationInvoke}
	s.Add(first)
	s.Add(second)

	got := s.Edges()
	assert.Equal(t, []Edge{first, second}, got)
}

func TestIsFilteredPath(t *testing.T) {
	cases := map[string]bool{
		"src/foo.py":           false,
		"tests/test_foo.py":    true,
		"test/foo.py":          true,
		"docs/guide.py":        true,
		"pkg/__init__.py":      true,
		"pkg/cli.py":           true,
		"pkg/handler.py":       false,
	}
	for path, want := range cases {
		assert.Equalf(t, want, isFilteredPath(path), "path %q", path)
	}
}
