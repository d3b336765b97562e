package opt

// nearestNeighbor walks greedily from c.Start, always moving to the cheapest
// reachable unvisited stop (lowest index on ties). c.End is held back and
// appended last. A dead end fails with ErrNoFeasibleTour.
func nearestNeighbor(m *CostMatrix, c RouteConstraint) ([]int, error) {
	n := m.N()
	visited := make([]bool, n)
	visited[c.Start] = true
	visited[c.End] = true

	tour := make([]int, 0, c.tourLen(n))
	tour = append(tour, c.Start)
	interior := n - 2
	if c.Closed() {
		interior = n - 1
	}

	cur := c.Start
	for step := 0; step < interior; step++ {
		next, best := -1, Unreachable
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if w := m.At(cur, j); w < best {
				next, best = j, w
			}
		}
		if next < 0 {
			return nil, stopError(ErrNoFeasibleTour, cur, "construction stuck at stop %d with %d stops unplaced", cur, interior-step)
		}
		visited[next] = true
		tour = append(tour, next)
		cur = next
	}

	if !m.Reachable(cur, c.End) {
		return nil, stopError(ErrNoFeasibleTour, cur, "stop %d cannot reach end stop %d", cur, c.End)
	}
	return append(tour, c.End), nil
}
