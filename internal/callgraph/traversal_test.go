package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(name string) Location { return Location{RelPath: "a.py", Line: 1, Name: name} }

func edge(caller, callee string) Edge {
	return Edge{Caller: loc(caller), Relation: RelationInvoke, Callee: loc(callee)}
}

func TestTraverse_DownstreamRespectsDepth(t *testing.T) {
	edges := []Edge{edge("a", "b"), edge("b", "c"), edge("c", "d")}

	got := Traverse(edges, []string{loc("a").String()}, TraversalOptions{Depth: 2, Direction: Downstream})
	require.Len(t, got, 2)
	assert.Equal(t, edge("a", "b"), got[0])
	assert.Equal(t, edge("b", "c"), got[1])
}

func TestTraverse_Upstream(t *testing.T) {
	edges := []Edge{edge("a", "b"), edge("x", "b")}

	got := Traverse(edges, []string{loc("b").String()}, TraversalOptions{Depth: 5, Direction: Upstream})
	assert.Len(t, got, 2)
}

func TestTraverse_CycleSafe(t *testing.T) {
	edges := []Edge{edge("a", "b"), edge("b", "a")}

	got := Traverse(edges, []string{loc("a").String()}, TraversalOptions{Depth: 10, Direction: Downstream})
	assert.Len(t, got, 2)
}

func TestTraverse_BothDirections(t *testing.T) {
	edges := []Edge{edge("a", "b"), edge("c", "a")}

	got := Traverse(edges, []string{loc("a").String()}, TraversalOptions{Depth: 1, Direction: Both})
	assert.Len(t, got, 2)
}

func TestTraverse_ZeroDepthYieldsNothing(t *testing.T) {
	edges := []Edge{edge("a", "b")}
	got := Traverse(edges, []string{loc("a").String()}, TraversalOptions{Depth: 0, Direction: Downstream})
	assert.Empty(t, got)
}

func TestTraverse_SeedAcceptsBareName(t *testing.T) {
	edges := []Edge{edge("a", "b"), edge("b", "c")}

	got := Traverse(edges, []string{"a"}, TraversalOptions{Depth: 2, Direction: Downstream})
	require.Len(t, got, 2)
	assert.Equal(t, edge("a", "b"), got[0])
	assert.Equal(t, edge("b", "c"), got[1])
}

func TestTraverse_SeedAcceptsPathQualifiedName(t *testing.T) {
	edges := []Edge{edge("a", "b")}

	got := Traverse(edges, []string{"a.py:a"}, TraversalOptions{Depth: 1, Direction: Downstream})
	require.Len(t, got, 1)
	assert.Equal(t, edge("a", "b"), got[0])
}

func TestTraverse_UnresolvableSeedYieldsNothing(t *testing.T) {
	edges := []Edge{edge("a", "b")}

	got := Traverse(edges, []string{"nonexistent"}, TraversalOptions{Depth: 2, Direction: Downstream})
	assert.Empty(t, got)
}

func TestTraverse_AmbiguousBareNameExpandsAllMatches(t *testing.T) {
	edges := []Edge{
		{Caller: Location{RelPath: "a.py", Line: 1, Name: "dup"}, Relation: RelationInvoke, Callee: loc("b")},
		{Caller: Location{RelPath: "x.py", Line: 1, Name: "dup"}, Relation: RelationInvoke, Callee: loc("c")},
	}

	got := Traverse(edges, []string{"dup"}, TraversalOptions{Depth: 1, Direction: Downstream})
	assert.Len(t, got, 2)
}

func TestTraverse_FiltersAreAdvisoryOnly(t *testing.T) {
	edges := []Edge{edge("a", "b")}
	opts := TraversalOptions{
		Depth: 1, Direction: Downstream,
		EntityTypeFilter:     []string{"function"},
		DependencyTypeFilter: []string{"import"},
	}
	got := Traverse(edges, []string{loc("a").String()}, opts)
	assert.Len(t, got, 1, "filters are accepted but not enforced")
}
