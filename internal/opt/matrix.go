package opt

import "math"

// Unreachable marks an ordered pair of stops with no usable direct edge.
var Unreachable = math.Inf(1)

// IsUnreachable reports whether c is the unreachable sentinel.
func IsUnreachable(c float64) bool { return math.IsInf(c, 1) }

// CostMatrix is an immutable N×N table of travel costs; At(i, j) is the cost
// of going from stop i to stop j. It may be asymmetric. Once built it is never
// mutated, so one matrix can be shared by concurrent searches.
type CostMatrix struct {
	n int
	w []float64 // row-major, w[i*n+j]
}

// NewCostMatrix copies rows into a CostMatrix. Every row must have exactly
// len(rows) entries. Values are not checked here; see Validate.
func NewCostMatrix(rows [][]float64) (*CostMatrix, error) {
	n := len(rows)
	w := make([]float64, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, cellError(ErrMalformedMatrix, i, -1, "row %d has %d entries, want %d", i, len(row), n)
		}
		copy(w[i*n:(i+1)*n], row)
	}
	return &CostMatrix{n: n, w: w}, nil
}

// N returns the number of stops.
func (m *CostMatrix) N() int { return m.n }

// At returns the cost of travelling from i to j.
func (m *CostMatrix) At(i, j int) float64 { return m.w[i*m.n+j] }

// Reachable reports whether the edge i→j is usable.
func (m *CostMatrix) Reachable(i, j int) bool { return !IsUnreachable(m.At(i, j)) }

// TourCost sums the directed cost of consecutive pairs in tour. It returns
// Unreachable if any leg uses the sentinel.
func TourCost(m *CostMatrix, tour []int) float64 {
	total := 0.0
	for k := 0; k+1 < len(tour); k++ {
		c := m.At(tour[k], tour[k+1])
		if IsUnreachable(c) {
			return Unreachable
		}
		total += c
	}
	return total
}
