package loadorder

import "container/heap"

// CycleError is returned when the constraint graph has no valid
// linearization. It carries one concrete cycle as an ordered list of
// plugin names so a user can see exactly what to break.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	msg := "cycle detected in load order constraints: "
	for i, name := range e.Cycle {
		if i > 0 {
			msg += " -> "
		}
		msg += name
	}
	return msg
}

// readyQueue is a binary min-heap over ready vertices (in-degree zero),
// ordered by the tie-break spec.md §4.5 specifies: masters before
// non-masters, then higher effective priority, then ascending canonical
// name.
type readyQueue struct {
	items    []int
	isMaster []bool
	eff      []effPriority
	names    []string
}

func (q *readyQueue) Len() int { return len(q.items) }

func (q *readyQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if q.isMaster[a] != q.isMaster[b] {
		return q.isMaster[a]
	}
	if q.eff[a].value != q.eff[b].value {
		return q.eff[a].value > q.eff[b].value
	}
	return foldName(q.names[a]) < foldName(q.names[b])
}

func (q *readyQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *readyQueue) Push(x interface{}) { q.items = append(q.items, x.(int)) }

func (q *readyQueue) Pop() interface{} {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

// topoSort linearizes g using a Kahn-style algorithm with the
// deterministic ready-queue tie-break above. On success it returns the
// plugin names in sort order. On failure (a cycle exists) it returns a
// *CycleError describing one cycle found among the unresolved vertices.
func topoSort(g *graph, byKey map[string]Descriptor, eff []effPriority) ([]string, error) {
	n := len(g.keys)
	indegree := make([]int, n)
	for _, edges := range g.adj {
		for _, v := range edges {
			indegree[v]++
		}
	}

	isMaster := make([]bool, n)
	for i, key := range g.keys {
		isMaster[i] = byKey[key].IsMaster
	}

	q := &readyQueue{isMaster: isMaster, eff: eff, names: g.names}
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			q.items = append(q.items, i)
		}
	}
	heap.Init(q)

	output := make([]string, 0, n)
	done := make([]bool, n)

	for q.Len() > 0 {
		u := heap.Pop(q).(int)
		done[u] = true
		output = append(output, g.names[u])

		for _, v := range g.adj[u] {
			indegree[v]--
			if indegree[v] == 0 {
				heap.Push(q, v)
			}
		}
	}

	if len(output) == n {
		return output, nil
	}

	cycle := findCycle(g, done)
	return nil, &CycleError{Cycle: cycle}
}

// findCycle performs a depth-first search restricted to vertices that
// were never resolved (done == false) to recover one concrete cycle.
func findCycle(g *graph, done []bool) []string {
	const (
		white = iota
		gray
		black
	)
	n := len(g.keys)
	color := make([]int, n)
	for i := range color {
		if done[i] {
			color[i] = black
		}
	}

	var path []int
	var cycle []int

	var visit func(u int) bool
	visit = func(u int) bool {
		color[u] = gray
		path = append(path, u)

		for _, v := range g.adj[u] {
			if color[v] == black {
				continue
			}
			if color[v] == gray {
				// Found the back-edge; extract the cycle from v's
				// position in path through to u, then close it.
				start := 0
				for i, p := range path {
					if p == v {
						start = i
						break
					}
				}
				cycle = append([]int{}, path[start:]...)
				cycle = append(cycle, v)
				return true
			}
			if visit(v) {
				return true
			}
		}

		path = path[:len(path)-1]
		color[u] = black
		return false
	}

	for i := 0; i < n; i++ {
		if color[i] == white {
			if visit(i) {
				break
			}
		}
	}

	names := make([]string, len(cycle))
	for i, idx := range cycle {
		names[i] = g.names[idx]
	}
	return names
}
