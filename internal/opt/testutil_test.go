package opt

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var inf = Unreachable

func mustMatrix(t *testing.T, rows [][]float64) *CostMatrix {
	t.Helper()
	m, err := NewCostMatrix(rows)
	require.NoError(t, err)
	return m
}

// euclid builds a symmetric matrix of straight-line distances.
func euclid(pts [][2]float64) [][]float64 {
	n := len(pts)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = math.Hypot(pts[i][0]-pts[j][0], pts[i][1]-pts[j][1])
		}
	}
	return rows
}

// randomRows builds an n×n asymmetric matrix with integer costs in [1,100].
func randomRows(n int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			if i != j {
				rows[i][j] = float64(1 + rng.Intn(100))
			}
		}
	}
	return rows
}

// requireValidTour checks the structural guarantees every returned tour has.
func requireValidTour(t *testing.T, m *CostMatrix, c RouteConstraint, tour []int) {
	t.Helper()
	n := m.N()
	require.Len(t, tour, c.tourLen(n))
	require.Equal(t, c.Start, tour[0], "tour must start at start")
	require.Equal(t, c.End, tour[len(tour)-1], "tour must end at end")

	seen := make([]int, n)
	body := tour
	if c.Closed() {
		body = tour[:len(tour)-1]
	}
	for _, v := range body {
		require.True(t, v >= 0 && v < n, "stop %d out of range", v)
		seen[v]++
	}
	for v, cnt := range seen {
		require.Equal(t, 1, cnt, "stop %d visited %d times", v, cnt)
	}
	for k := 0; k+1 < len(tour); k++ {
		require.True(t, m.Reachable(tour[k], tour[k+1]), "leg %d→%d is unreachable", tour[k], tour[k+1])
	}
}

// bruteForce enumerates every interior ordering.
func bruteForce(m *CostMatrix, c RouteConstraint) float64 {
	var inner []int
	for v := 0; v < m.N(); v++ {
		if v != c.Start && v != c.End {
			inner = append(inner, v)
		}
	}
	best := Unreachable
	var permute func(k int)
	permute = func(k int) {
		if k == len(inner) {
			tour := append(append([]int{c.Start}, inner...), c.End)
			if cost := TourCost(m, tour); cost < best {
				best = cost
			}
			return
		}
		for i := k; i < len(inner); i++ {
			inner[k], inner[i] = inner[i], inner[k]
			permute(k + 1)
			inner[k], inner[i] = inner[i], inner[k]
		}
	}
	permute(0)
	return best
}
