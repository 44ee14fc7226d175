package loadorder

import (
	"sort"

	"github.com/loadforge/sorter/internal/metadata"
)

// graph is a directed graph over plugin vertices, addressed by dense
// integer index rather than by name — per spec.md's design notes, the
// graph borrows indices into a vertex array for the duration of one sort
// and never needs to copy descriptors.
type graph struct {
	keys  []string // folded name, index = vertex id
	names []string // canonical display name, aligned by index
	index map[string]int
	adj   [][]int // outgoing edges per vertex
}

func newGraph(descriptors []Descriptor) *graph {
	// Canonical name order: everything downstream (edge enumeration,
	// priority worklist seeding, tie-breaks) iterates vertices in this
	// order so two runs over the same input always do the same work in
	// the same sequence.
	sorted := make([]Descriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.Slice(sorted, func(i, j int) bool {
		return foldName(sorted[i].Name) < foldName(sorted[j].Name)
	})

	g := &graph{
		keys:  make([]string, len(sorted)),
		names: make([]string, len(sorted)),
		index: make(map[string]int, len(sorted)),
		adj:   make([][]int, len(sorted)),
	}
	for i, d := range sorted {
		key := foldName(d.Name)
		g.keys[i] = key
		g.names[i] = d.Name
		g.index[key] = i
	}
	return g
}

func (g *graph) lookup(name string) (int, bool) {
	i, ok := g.index[foldName(name)]
	return i, ok
}

func (g *graph) addEdge(u, v int) {
	g.adj[u] = append(g.adj[u], v)
}

// buildBaseGraph adds edge classes 1-4 (master/regular, header master,
// metadata load_after, requirements) plus the group-implied load_after
// edges, in the fixed order spec.md §4.2 requires. Missing references are
// silently skipped. Classes 5 (priority) and 6 (overlap) are added later,
// once effective priorities are known.
func buildBaseGraph(descriptors []Descriptor, groupDefs []metadata.GroupDef) (*graph, error) {
	g := newGraph(descriptors)

	byKey := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byKey[foldName(d.Name)] = d
	}

	// Class 1: every master -> every non-master.
	var masters, nonMasters []int
	for i, key := range g.keys {
		if byKey[key].IsMaster {
			masters = append(masters, i)
		} else {
			nonMasters = append(nonMasters, i)
		}
	}
	for _, m := range masters {
		for _, n := range nonMasters {
			g.addEdge(m, n)
		}
	}

	// Class 2: header master -> plugin, in declared order.
	for i, key := range g.keys {
		d := byKey[key]
		for _, master := range d.Masters {
			if mi, ok := g.lookup(master); ok {
				g.addEdge(mi, i)
			}
		}
	}

	// Class 3: metadata load_after -> plugin, in name order (see orderedRefs).
	for i, key := range g.keys {
		d := byKey[key]
		for _, ref := range orderedRefs(d.Metadata.LoadAfter) {
			if qi, ok := g.lookup(ref.Name); ok {
				g.addEdge(qi, i)
			}
		}
	}

	// Class 4: requirement -> plugin, in name order (see orderedRefs).
	for i, key := range g.keys {
		d := byKey[key]
		for _, ref := range orderedRefs(d.Metadata.Requirements) {
			if qi, ok := g.lookup(ref.Name); ok {
				g.addEdge(qi, i)
			}
		}
	}

	// Group edges: resolve the group DAG, then add a class-3-style edge
	// from every plugin in group A to every plugin in the group
	// immediately following A in the resolved order. See SPEC_FULL.md
	// §4.2.1 for why this is adjacent-group-only rather than transitive.
	groupOrder, err := metadata.ResolveGroups(groupDefs)
	if err != nil {
		return nil, err
	}
	membersByGroup := make(map[string][]int, len(groupOrder))
	for i, key := range g.keys {
		group := byKey[key].Metadata.Group
		if group == "" {
			group = metadata.DefaultGroup
		}
		membersByGroup[group] = append(membersByGroup[group], i)
	}
	for gi := 1; gi < len(groupOrder); gi++ {
		prev := membersByGroup[groupOrder[gi-1]]
		cur := membersByGroup[groupOrder[gi]]
		for _, u := range prev {
			for _, v := range cur {
				g.addEdge(u, v)
			}
		}
	}

	return g, nil
}

// orderedRefs returns a metadata.FileRef set in a fixed, deterministic
// order (declaration order isn't preserved once refs are unioned into a
// map, so this falls back to name order, matching spec.md's requirement
// that edge enumeration itself be deterministic even though the union
// operation already lost list order).
func orderedRefs(refs map[string]metadata.FileRef) []metadata.FileRef {
	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]metadata.FileRef, len(keys))
	for i, k := range keys {
		out[i] = refs[k]
	}
	return out
}

