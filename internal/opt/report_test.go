package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReport(t *testing.T) {
	m := mustMatrix(t, [][]float64{
		{0, 600, 3000},
		{60, 0, 3},
		{1, 7, 0},
	})
	res := Result{Tour: []int{0, 1, 2, 0}, Cost: 604, Stats: Stats{Reason: StopLocalOptimum}}

	rep, err := NewReport(m, res, []string{"depot", "north", "south"}, UnitSeconds)
	require.NoError(t, err)
	assert.Equal(t, []string{"depot", "north", "south", "depot"}, rep.Labels)
	require.Len(t, rep.Legs, 3)
	assert.Equal(t, Leg{Seq: 1, From: 0, To: 1, FromLabel: "depot", ToLabel: "north", Cost: 600}, rep.Legs[0])
	assert.Equal(t, Leg{Seq: 3, From: 2, To: 0, FromLabel: "south", ToLabel: "depot", Cost: 1}, rep.Legs[2])
	assert.Equal(t, 604.0, rep.TotalCost)
	assert.Equal(t, "0h 10m 4s", rep.TotalFormatted)
	assert.Equal(t, StopLocalOptimum, rep.Stats.Reason)
}

func TestNewReport_Errors(t *testing.T) {
	m := mustMatrix(t, [][]float64{{0, 1}, {inf, 0}})
	_, err := NewReport(m, Result{Tour: []int{0, 1}}, []string{"only one"}, "")
	require.Error(t, err)

	_, err = NewReport(m, Result{Tour: []int{1, 0}}, nil, "")
	require.Error(t, err)
}

func TestNewReport_Meters(t *testing.T) {
	m := mustMatrix(t, [][]float64{{0, 1234}, {1, 0}})
	rep, err := NewReport(m, Result{Tour: []int{0, 1}}, nil, UnitMeters)
	require.NoError(t, err)
	assert.Nil(t, rep.Labels)
	assert.Equal(t, "1.23 km", rep.TotalFormatted)
}

func TestFormatDuration(t *testing.T) {
	tests := map[float64]string{
		0:       "0h 0m 0s",
		59.4:    "0h 0m 59s",
		59.6:    "0h 1m 0s",
		3723:    "1h 2m 3s",
		90061.2: "25h 1m 1s",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatDuration(in), "%v", in)
	}
}
