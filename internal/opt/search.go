package opt

import "context"

// eps is the minimum gain for a move to count as an improvement.
const eps = 1e-9

// maxSegment is the longest segment Or-opt relocates.
const maxSegment = 3

// search holds one restart's working tour. Positions 0 and len(tour)-1 are
// fixed; every move rewrites the interior only.
type search struct {
	m    *CostMatrix
	tour []int
	cost float64

	// Prefix sums over the current tour, rebuilt after each accepted 2-opt
	// move: fwd[p] is the cost of tour[0..p] in travel direction, bwd[p] the
	// finite part of the same legs walked backwards and binf[p] the number of
	// backward legs that are unreachable.
	fwd  []float64
	bwd  []float64
	binf []int

	passes      int
	twoOptMoves int
	orOptMoves  int
}

func newSearch(m *CostMatrix, tour []int) *search {
	s := &search{
		m:    m,
		tour: tour,
		cost: TourCost(m, tour),
		fwd:  make([]float64, len(tour)),
		bwd:  make([]float64, len(tour)),
		binf: make([]int, len(tour)),
	}
	s.rebuildPrefix()
	return s
}

func (s *search) rebuildPrefix() {
	t := s.tour
	for p := 1; p < len(t); p++ {
		s.fwd[p] = s.fwd[p-1] + s.m.At(t[p-1], t[p])
		back := s.m.At(t[p], t[p-1])
		s.bwd[p], s.binf[p] = s.bwd[p-1], s.binf[p-1]
		if IsUnreachable(back) {
			s.binf[p]++
		} else {
			s.bwd[p] += back
		}
	}
}

// run improves the tour pass by pass until no move helps, the pass budget is
// spent, or ctx is done. ctx is only checked between passes.
func (s *search) run(ctx context.Context, budget Budget, onPass func(pass, twoOpt, orOpt int, cost float64)) StopReason {
	for {
		if budget.Passes > 0 && s.passes >= budget.Passes {
			return StopPassBudget
		}
		if ctx.Err() != nil {
			return StopTimeBudget
		}
		two := s.twoOptSweep()
		or := s.orOptSweep()
		s.passes++
		s.twoOptMoves += two
		s.orOptMoves += or
		// Re-sum from scratch so accumulated deltas never drift.
		s.cost = TourCost(s.m, s.tour)
		if onPass != nil {
			onPass(s.passes, two, or, s.cost)
		}
		if two+or == 0 {
			return StopLocalOptimum
		}
	}
}

// twoOptSweep tries every interior segment reversal once, applying each
// improving one as it is found. Reversing tour[i..k] replaces legs
// (a→b), (c→d) with (a→c), (b→d) and flips every leg inside the segment,
// so the gain includes the backward cost of the segment.
func (s *search) twoOptSweep() int {
	t := s.tour
	last := len(t) - 2 // last movable position
	moves := 0
	for i := 1; i < last; i++ {
		for k := i + 1; k <= last; k++ {
			if s.binf[k]-s.binf[i] > 0 {
				continue
			}
			a, b, c, d := t[i-1], t[i], t[k], t[k+1]
			ac, bd := s.m.At(a, c), s.m.At(b, d)
			if IsUnreachable(ac) || IsUnreachable(bd) {
				continue
			}
			delta := ac + bd - s.m.At(a, b) - s.m.At(c, d) +
				(s.bwd[k] - s.bwd[i]) - (s.fwd[k] - s.fwd[i])
			if delta >= -eps {
				continue
			}
			reverse(t, i, k)
			s.cost += delta
			s.rebuildPrefix()
			moves++
		}
	}
	return moves
}

// orOptSweep tries to move every interior segment of 1..maxSegment stops
// into every other gap of the tour, forwards and reversed.
func (s *search) orOptSweep() int {
	moves := 0
	for size := 1; size <= maxSegment; size++ {
		for i := 1; i+size-1 <= len(s.tour)-2; i++ {
			if s.tryRelocate(i, i+size-1) {
				moves++
			}
		}
	}
	if moves > 0 {
		s.rebuildPrefix()
	}
	return moves
}

// tryRelocate looks for the best improving new position of tour[i..j] and
// applies it.
func (s *search) tryRelocate(i, j int) bool {
	t, m := s.tour, s.m
	prev, next := t[i-1], t[j+1]
	first, lastStop := t[i], t[j]
	bridge := m.At(prev, next)
	if IsUnreachable(bridge) {
		return false
	}
	removed := m.At(prev, first) + m.At(lastStop, next) - bridge

	// Internal cost of the segment walked forwards and backwards.
	inner, innerRev, revOK := 0.0, 0.0, true
	for q := i; q < j; q++ {
		inner += m.At(t[q], t[q+1])
		back := m.At(t[q+1], t[q])
		if IsUnreachable(back) {
			revOK = false
		}
		innerRev += back
	}
	if i == j {
		revOK = false
	}

	bestDelta, bestGap, bestRev := -eps, -1, false
	for p := 0; p <= len(t)-2; p++ {
		if p >= i-1 && p <= j {
			continue
		}
		u, v := t[p], t[p+1]
		uv := m.At(u, v)
		if w1, w2 := m.At(u, first), m.At(lastStop, v); !IsUnreachable(w1) && !IsUnreachable(w2) {
			if d := w1 + w2 - uv - removed; d < bestDelta {
				bestDelta, bestGap, bestRev = d, p, false
			}
		}
		if revOK {
			if w1, w2 := m.At(u, lastStop), m.At(first, v); !IsUnreachable(w1) && !IsUnreachable(w2) {
				if d := w1 + w2 - uv - removed + innerRev - inner; d < bestDelta {
					bestDelta, bestGap, bestRev = d, p, true
				}
			}
		}
	}
	if bestGap < 0 {
		return false
	}
	relocate(t, i, j, bestGap, bestRev)
	s.cost += bestDelta
	return true
}

// reverse flips t[i..k] in place.
func reverse(t []int, i, k int) {
	for ; i < k; i, k = i+1, k-1 {
		t[i], t[k] = t[k], t[i]
	}
}

// relocate moves t[i..j] into the gap after position p (p < i-1 or p > j),
// optionally reversed. Positions outside the affected span keep their stops.
func relocate(t []int, i, j, p int, rev bool) {
	seg := append([]int(nil), t[i:j+1]...)
	if rev {
		reverse(seg, 0, len(seg)-1)
	}
	size := len(seg)
	if p < i {
		// shift t[p+1..i-1] right by size
		copy(t[p+1+size:j+1], t[p+1:i])
		copy(t[p+1:], seg)
		return
	}
	// shift t[j+1..p] left by size
	copy(t[i:], t[j+1:p+1])
	copy(t[p-size+1:p+1], seg)
}
