package loadorder

// overlapSet is the result of computeOverlaps: a deterministically
// ordered list of overlapping vertex-index pairs (i < j, sorted by i then
// j, which is canonical-name order since vertex indices already are) plus
// an O(1) membership set for the priority-edge pass.
type overlapSet struct {
	pairs [][2]int
	has   map[[2]int]bool
}

// computeOverlaps returns every unordered pair of vertices whose FormID
// sets intersect. Computed once and shared between the priority-edge pass
// (which needs "do these two overlap" as a boolean) and the
// overlap-tie-break pass (which additionally needs the FormID counts and
// a stable processing order, since each tie-break edge added can change
// the reachability answer for later pairs).
func computeOverlaps(g *graph, byKey map[string]Descriptor) overlapSet {
	n := len(g.keys)
	set := overlapSet{has: make(map[[2]int]bool)}
	for i := 0; i < n; i++ {
		fi := byKey[g.keys[i]].FormIDs
		if len(fi) == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			fj := byKey[g.keys[j]].FormIDs
			if len(fj) == 0 {
				continue
			}
			if formIDsIntersect(fi, fj) {
				pair := [2]int{i, j}
				set.pairs = append(set.pairs, pair)
				set.has[pair] = true
			}
		}
	}
	return set
}

func formIDsIntersect(a, b map[uint32]struct{}) bool {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

// addOverlapEdges adds edge class 6, last in the fixed insertion order.
// For each overlapping pair with no edge already in either direction, an
// edge is added from the plugin with more overridden FormIDs to the one
// with fewer; ties break by canonical name (smaller name loads first).
func addOverlapEdges(g *graph, byKey map[string]Descriptor, overlaps overlapSet) {
	for _, pair := range overlaps.pairs {
		i, j := pair[0], pair[1]
		if hasPath(g, i, j) || hasPath(g, j, i) {
			continue
		}

		ci := len(byKey[g.keys[i]].FormIDs)
		cj := len(byKey[g.keys[j]].FormIDs)

		switch {
		case ci > cj:
			g.addEdge(i, j)
		case cj > ci:
			g.addEdge(j, i)
		default:
			// Vertex indices are assigned in fold-sorted name order (see
			// newGraph), and pairs here always have i < j, so the
			// canonical tie-break — smaller folded name loads first — is
			// already satisfied by index order; no name comparison needed.
			g.addEdge(i, j)
		}
	}
}

// hasPath reports whether v is reachable from u via a breadth-first
// search of the graph as built so far. Acceptable per spec.md's design
// notes: vertex counts are small (dozens to low thousands), so a
// per-query BFS is cheap enough without maintaining a transitive-closure
// bitset.
func hasPath(g *graph, u, v int) bool {
	if u == v {
		return true
	}
	visited := make([]bool, len(g.keys))
	queue := []int{u}
	visited[u] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.adj[cur] {
			if next == v {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
