package callgraph

// Direction selects which side of an edge traversal follows.
type Direction string

const (
	// Downstream follows edges from a seed to what it calls (Caller -> Callee).
	Downstream Direction = "downstream"
	// Upstream follows edges backwards, to what calls a seed (Callee -> Caller).
	Upstream Direction = "upstream"
	// Both follows edges in either direction from each frontier node.
	Both Direction = "both"
)

// TraversalOptions configures Traverse. EntityTypeFilter and
// DependencyTypeFilter are accepted but not enforced — spec.md §9's Open
// Question (b): the extractor only ever produces invoke/called edges, so
// there is nothing for these to discriminate against yet. They exist as
// future extension points and are preserved here, unused, for API parity.
type TraversalOptions struct {
	Depth                int
	Direction            Direction
	EntityTypeFilter     []string
	DependencyTypeFilter []string
}

// Traverse computes the depth-limited transitive closure of seeds over
// edges in the requested direction (spec.md §4.5.6). Seeds are accepted in
// any of the three forms spec.md §4.5.6 documents — a bare entity name, a
// "path:name" qualified form, or the full "path:line:name" node key — and
// are resolved against the node index before the walk starts; a seed that
// resolves to more than one node (e.g. an overloaded bare name) expands the
// closure from all of them. Cycle safety comes from the visited-set dedup
// below, independent of EdgeSet's own caller/relation/callee dedup.
func Traverse(edges []Edge, seeds []string, opts TraversalOptions) []Edge {
	if opts.Depth <= 0 {
		return nil
	}

	byCaller := make(map[string][]Edge)
	byCallee := make(map[string][]Edge)
	for _, e := range edges {
		byCaller[e.Caller.String()] = append(byCaller[e.Caller.String()], e)
		byCallee[e.Callee.String()] = append(byCallee[e.Callee.String()], e)
	}

	idx := buildNodeIndex(edges)

	visitedNodes := make(map[string]bool, len(seeds))
	visitedEdges := make(map[string]bool)
	frontier := make([]string, 0, len(seeds))
	for _, s := range seeds {
		for _, node := range idx.resolve(s) {
			if !visitedNodes[node] {
				visitedNodes[node] = true
				frontier = append(frontier, node)
			}
		}
	}

	var result []Edge
	for depth := 0; depth < opts.Depth && len(frontier) > 0; depth++ {
		var next []string
		for _, node := range frontier {
			if opts.Direction == Downstream || opts.Direction == Both {
				for _, e := range byCaller[node] {
					next = append(next, expandEdge(e, e.Callee.String(), visitedNodes, visitedEdges, &result)...)
				}
			}
			if opts.Direction == Upstream || opts.Direction == Both {
				for _, e := range byCallee[node] {
					next = append(next, expandEdge(e, e.Caller.String(), visitedNodes, visitedEdges, &result)...)
				}
			}
		}
		frontier = next
	}
	return result
}

// expandEdge records e (once) and reports the new frontier node to visit
// next, if any.
func expandEdge(e Edge, nextNode string, visitedNodes, visitedEdges map[string]bool, result *[]Edge) []string {
	if !visitedEdges[e.key()] {
		visitedEdges[e.key()] = true
		*result = append(*result, e)
	}
	if visitedNodes[nextNode] {
		return nil
	}
	visitedNodes[nextNode] = true
	return []string{nextNode}
}

// nodeIndex resolves a seed given in any of spec.md §4.5.6's accepted
// forms (bare name, "path:name", or full "path:line:name") to the set of
// full node keys it matches.
type nodeIndex struct {
	byFull     map[string]bool
	byPathName map[string][]string
	byName     map[string][]string
}

// buildNodeIndex indexes every node (caller and callee endpoint) appearing
// in edges under its full key, its "path:name" form, and its bare name.
func buildNodeIndex(edges []Edge) *nodeIndex {
	idx := &nodeIndex{
		byFull:     make(map[string]bool),
		byPathName: make(map[string][]string),
		byName:     make(map[string][]string),
	}
	add := func(loc Location) {
		full := loc.String()
		if idx.byFull[full] {
			return
		}
		idx.byFull[full] = true
		pathName := loc.RelPath + ":" + loc.Name
		idx.byPathName[pathName] = append(idx.byPathName[pathName], full)
		idx.byName[loc.Name] = append(idx.byName[loc.Name], full)
	}
	for _, e := range edges {
		add(e.Caller)
		add(e.Callee)
	}
	return idx
}

// resolve maps seed to the full node key(s) it identifies, trying the full
// form first, then "path:name", then a bare entity name. A seed matching
// none of these resolves to nothing, so it contributes no frontier nodes
// instead of panicking or matching unrelated nodes.
func (idx *nodeIndex) resolve(seed string) []string {
	if idx.byFull[seed] {
		return []string{seed}
	}
	if nodes, ok := idx.byPathName[seed]; ok {
		return nodes
	}
	if nodes, ok := idx.byName[seed]; ok {
		return nodes
	}
	return nil
}
