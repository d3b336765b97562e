package opt

import "math"

// Validate checks m and c before optimization: at least two stops, indices
// in range, zero diagonal, no NaN or negative entries, and at least one usable
// edge out of the start and into the end. Off-diagonal entries may be
// Unreachable. Validate has no side effects.
func Validate(m *CostMatrix, c RouteConstraint) error {
	if m == nil {
		return newError(ErrMalformedMatrix, "nil matrix")
	}
	n := m.N()
	if n < 2 {
		return newError(ErrDegenerateInput, "need at least 2 stops, got %d", n)
	}
	if c.Start < 0 || c.Start >= n {
		return stopError(ErrInvalidConstraint, c.Start, "start %d out of range [0,%d)", c.Start, n)
	}
	if c.End < 0 || c.End >= n {
		return stopError(ErrInvalidConstraint, c.End, "end %d out of range [0,%d)", c.End, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.At(i, j)
			switch {
			case math.IsNaN(v):
				return cellError(ErrMalformedMatrix, i, j, "cost[%d][%d] is NaN", i, j)
			case v < 0:
				return cellError(ErrNegativeCost, i, j, "cost[%d][%d] = %v", i, j, v)
			case i == j && v != 0:
				return cellError(ErrMalformedMatrix, i, j, "diagonal cost[%d][%d] = %v, want 0", i, j, v)
			}
		}
	}

	if !hasEdge(m, c.Start, true) {
		return stopError(ErrUnreachableStart, c.Start, "stop %d has no outgoing edge", c.Start)
	}
	if !hasEdge(m, c.End, false) {
		return stopError(ErrUnreachableEnd, c.End, "stop %d has no incoming edge", c.End)
	}
	return nil
}

// hasEdge reports whether stop has a usable edge to (out) or from (!out)
// some other stop.
func hasEdge(m *CostMatrix, stop int, out bool) bool {
	for k := 0; k < m.N(); k++ {
		if k == stop {
			continue
		}
		if out && m.Reachable(stop, k) || !out && m.Reachable(k, stop) {
			return true
		}
	}
	return false
}
