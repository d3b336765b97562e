package opt

// heldKarp returns a minimum-cost tour with fixed endpoints by dynamic
// programming over subsets of the interior stops.
//
// dp[mask*k+j] is the cheapest walk that leaves c.Start, visits exactly the
// interior stops in mask and ends at interior stop j. O(k²·2^k) time and
// O(k·2^k) memory for k interior stops.
func heldKarp(m *CostMatrix, c RouteConstraint) ([]int, float64, error) {
	n := m.N()
	if n > MaxExactStops {
		return nil, 0, newError(ErrTooManyStops, "%d stops, exact search supports at most %d", n, MaxExactStops)
	}

	inner := make([]int, 0, n)
	for v := 0; v < n; v++ {
		if v != c.Start && v != c.End {
			inner = append(inner, v)
		}
	}
	k := len(inner)
	if k == 0 {
		w := m.At(c.Start, c.End)
		if IsUnreachable(w) {
			return nil, 0, stopError(ErrNoFeasibleTour, c.Start, "no edge from %d to %d", c.Start, c.End)
		}
		return []int{c.Start, c.End}, w, nil
	}

	full := 1<<k - 1
	dp := make([]float64, (full+1)*k)
	parent := make([]int, (full+1)*k)
	for i := range dp {
		dp[i] = Unreachable
		parent[i] = -1
	}
	for j, v := range inner {
		dp[(1<<j)*k+j] = m.At(c.Start, v)
	}

	for mask := 1; mask <= full; mask++ {
		for j := 0; j < k; j++ {
			if mask&(1<<j) == 0 {
				continue
			}
			cur := dp[mask*k+j]
			if IsUnreachable(cur) {
				continue
			}
			for nx := 0; nx < k; nx++ {
				if mask&(1<<nx) != 0 {
					continue
				}
				w := m.At(inner[j], inner[nx])
				if IsUnreachable(w) {
					continue
				}
				idx := (mask|1<<nx)*k + nx
				if cand := cur + w; cand < dp[idx] {
					dp[idx] = cand
					parent[idx] = j
				}
			}
		}
	}

	best, last := Unreachable, -1
	for j := 0; j < k; j++ {
		w := m.At(inner[j], c.End)
		if IsUnreachable(w) || IsUnreachable(dp[full*k+j]) {
			continue
		}
		if total := dp[full*k+j] + w; total < best {
			best, last = total, j
		}
	}
	if last < 0 {
		return nil, 0, newError(ErrNoFeasibleTour, "no tour visits all %d stops", n)
	}

	tour := make([]int, k+2)
	tour[0], tour[k+1] = c.Start, c.End
	mask, j := full, last
	for pos := k; pos >= 1; pos-- {
		tour[pos] = inner[j]
		prev := parent[mask*k+j]
		mask ^= 1 << j
		j = prev
	}
	return tour, best, nil
}
