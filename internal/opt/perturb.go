package opt

import "math/rand"

// kickAttempts bounds how often perturb retries a kick that produced an
// unreachable leg.
const kickAttempts = 8

// perturb returns a feasible copy of tour with its interior scrambled by one
// double-bridge move, or a random segment reversal when the interior is too
// short for a double bridge. If no feasible kick is found the copy is
// returned unchanged.
func perturb(m *CostMatrix, tour []int, rng *rand.Rand) []int {
	interior := len(tour) - 2
	for attempt := 0; attempt < kickAttempts; attempt++ {
		cand := append([]int(nil), tour...)
		switch {
		case interior >= 8:
			doubleBridge(cand, rng)
		case interior >= 2:
			i := 1 + rng.Intn(interior-1)
			k := i + 1 + rng.Intn(interior-i)
			reverse(cand, i, k)
		default:
			return cand
		}
		if !IsUnreachable(TourCost(m, cand)) {
			return cand
		}
	}
	return append([]int(nil), tour...)
}

// doubleBridge splits the interior into A B C D and reorders it A C B D.
func doubleBridge(t []int, rng *rand.Rand) {
	interior := len(t) - 2
	// cut points 1 < p1 < p2 < p3 <= interior, so every moved stop is interior
	p1 := 2 + rng.Intn(interior/3)
	p2 := p1 + 1 + rng.Intn(interior/3)
	p3 := p2 + 1 + rng.Intn(interior-p2)
	b := append([]int(nil), t[p1:p2]...)
	c := append([]int(nil), t[p2:p3]...)
	copy(t[p1:], c)
	copy(t[p1+len(c):], b)
}
