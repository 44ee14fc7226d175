package loadorder

// effPriority is a vertex's computed effective priority: the maximum,
// over itself and every ancestor reachable via edge classes 1-4, of
// declared priorities (spec.md §4.3). The global flag propagates
// identically — true if any contributor on the path is global.
type effPriority struct {
	value  int32
	global bool
}

// propagatePriorities runs the priority fixpoint over the base graph
// (edge classes 1-4 only — priority and overlap edges don't exist yet).
// It uses worklist propagation along outgoing edges rather than repeated
// full passes, which is linear in |V|+|E| and independent of vertex
// visitation order (spec.md's design notes call this out explicitly: the
// whole point of the fixpoint is that "Blank - Different.esp" inherits
// priority transitively regardless of how the graph happens to be
// traversed).
func propagatePriorities(g *graph, byKey map[string]Descriptor) []effPriority {
	eff := make([]effPriority, len(g.keys))
	for i, key := range g.keys {
		d := byKey[key]
		eff[i] = effPriority{value: d.Metadata.Priority, global: d.Metadata.PriorityIsGlobal}
	}

	queue := make([]int, len(g.keys))
	queued := make([]bool, len(g.keys))
	for i := range queue {
		queue[i] = i
		queued[i] = true
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		queued[u] = false

		for _, v := range g.adj[u] {
			changed := false
			if eff[u].value > eff[v].value {
				eff[v].value = eff[u].value
				changed = true
			}
			if eff[u].global && !eff[v].global {
				eff[v].global = true
				changed = true
			}
			if changed && !queued[v] {
				queue = append(queue, v)
				queued[v] = true
			}
		}
	}

	return eff
}

// addPriorityEdges adds edge class 5: for every applicable pair, an edge
// from the plugin with the lower effective priority to the one with the
// higher. A pair is applicable when both are global, or when they
// overlap by FormID (spec.md §4.3). Master/non-master pairs never get a
// priority edge — class 1 already orders them. Equal effective
// priorities add no edge.
func addPriorityEdges(g *graph, byKey map[string]Descriptor, eff []effPriority, overlaps overlapSet) {
	n := len(g.keys)
	for i := 0; i < n; i++ {
		di := byKey[g.keys[i]]
		for j := i + 1; j < n; j++ {
			dj := byKey[g.keys[j]]
			if di.IsMaster != dj.IsMaster {
				continue
			}
			applicable := (eff[i].global && eff[j].global) || overlaps.has[[2]int{i, j}]
			if !applicable {
				continue
			}
			if eff[i].value == eff[j].value {
				continue
			}
			if eff[i].value < eff[j].value {
				g.addEdge(i, j)
			} else {
				g.addEdge(j, i)
			}
		}
	}
}
