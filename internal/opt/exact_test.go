package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeldKarp_MatchesBruteForce(t *testing.T) {
	for n := 3; n <= 8; n++ {
		for seed := int64(1); seed <= 5; seed++ {
			m := mustMatrix(t, randomRows(n, seed*int64(n)))
			for _, c := range []RouteConstraint{{Start: 0, End: n - 1}, {Start: n - 1, End: 1}, {Start: 2, End: 2}} {
				tour, cost, err := heldKarp(m, c)
				require.NoError(t, err)
				requireValidTour(t, m, c, tour)
				assert.Equal(t, TourCost(m, tour), cost)
				assert.Equal(t, bruteForce(m, c), cost, "n=%d seed=%d c=%+v", n, seed, c)
			}
		}
	}
}

func TestHeldKarp_AvoidsUnreachableEdges(t *testing.T) {
	// The only feasible order is 0 2 1 3.
	m := mustMatrix(t, [][]float64{
		{0, inf, 1, inf},
		{inf, 0, inf, 1},
		{inf, 1, 0, inf},
		{inf, inf, inf, 0},
	})
	tour, cost, err := heldKarp(m, RouteConstraint{Start: 0, End: 3})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1, 3}, tour)
	assert.Equal(t, 3.0, cost)
}

func TestHeldKarp_NoFeasibleTour(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{0, 1, inf, 1},
		{1, 0, inf, 1},
		{inf, inf, 0, inf},
		{1, 1, inf, 0},
	})
	_, _, err := heldKarp(m, RouteConstraint{Start: 0, End: 3})
	require.ErrorIs(t, err, ErrNoFeasibleTour)
}

func TestHeldKarp_TooManyStops(t *testing.T) {
	m := mustMatrix(t, randomRows(MaxExactStops+1, 1))
	_, _, err := heldKarp(m, RouteConstraint{Start: 0, End: 1})
	require.ErrorIs(t, err, ErrTooManyStops)
	assert.True(t, IsInputError(err))
}
