package opt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCostMatrix_RaggedRows(t *testing.T) {
	_, err := NewCostMatrix([][]float64{{0, 1}, {1}})
	require.ErrorIs(t, err, ErrMalformedMatrix)

	var oe *Error
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, 1, oe.Row)
}

func TestNewCostMatrix_CopiesInput(t *testing.T) {
	rows := [][]float64{{0, 1}, {2, 0}}
	m := mustMatrix(t, rows)
	rows[0][1] = 99
	assert.Equal(t, 1.0, m.At(0, 1))
	assert.Equal(t, 2.0, m.At(1, 0))
}

func TestValidate(t *testing.T) {
	ok := [][]float64{
		{0, 1, 2},
		{1, 0, 3},
		{2, 3, 0},
	}
	tests := []struct {
		name string
		rows [][]float64
		c    RouteConstraint
		want error
		stop int
	}{
		{name: "valid open", rows: ok, c: RouteConstraint{Start: 0, End: 2}},
		{name: "valid closed", rows: ok, c: RouteConstraint{Start: 1, End: 1}},
		{name: "single stop", rows: [][]float64{{0}}, c: RouteConstraint{}, want: ErrDegenerateInput},
		{name: "empty", rows: [][]float64{}, c: RouteConstraint{}, want: ErrDegenerateInput},
		{name: "start out of range", rows: ok, c: RouteConstraint{Start: 3, End: 0}, want: ErrInvalidConstraint, stop: 3},
		{name: "end negative", rows: ok, c: RouteConstraint{Start: 0, End: -1}, want: ErrInvalidConstraint, stop: -1},
		{name: "nonzero diagonal", rows: [][]float64{{0, 1}, {1, 5}}, c: RouteConstraint{Start: 0, End: 1}, want: ErrMalformedMatrix},
		{name: "unreachable diagonal", rows: [][]float64{{inf, 1}, {1, 0}}, c: RouteConstraint{Start: 0, End: 1}, want: ErrMalformedMatrix},
		{name: "nan", rows: [][]float64{{0, math.NaN()}, {1, 0}}, c: RouteConstraint{Start: 0, End: 1}, want: ErrMalformedMatrix},
		{name: "negative", rows: [][]float64{{0, -1}, {1, 0}}, c: RouteConstraint{Start: 0, End: 1}, want: ErrNegativeCost},
		{name: "negative infinity", rows: [][]float64{{0, math.Inf(-1)}, {1, 0}}, c: RouteConstraint{Start: 0, End: 1}, want: ErrNegativeCost},
		{
			name: "start has no way out",
			rows: [][]float64{{0, inf, inf}, {1, 0, 1}, {1, 1, 0}},
			c:    RouteConstraint{Start: 0, End: 2},
			want: ErrUnreachableStart,
			stop: 0,
		},
		{
			name: "end has no way in",
			rows: [][]float64{{0, 1, inf}, {1, 0, inf}, {1, 1, 0}},
			c:    RouteConstraint{Start: 0, End: 2},
			want: ErrUnreachableEnd,
			stop: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMatrix(t, tt.rows)
			err := Validate(m, tt.c)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			var oe *Error
			require.True(t, errors.As(err, &oe))
			if errors.Is(tt.want, ErrUnreachableStart) || errors.Is(tt.want, ErrUnreachableEnd) || errors.Is(tt.want, ErrInvalidConstraint) {
				assert.Equal(t, tt.stop, oe.Stop)
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsInputError(newError(ErrNegativeCost, "x")))
	assert.True(t, IsInputError(newError(ErrDegenerateInput, "x")))
	assert.False(t, IsInputError(newError(ErrNoFeasibleTour, "x")))
	assert.True(t, IsReachabilityError(stopError(ErrUnreachableEnd, 2, "x")))
	assert.True(t, IsReachabilityError(newError(ErrNoFeasibleTour, "x")))
	assert.False(t, IsReachabilityError(newError(ErrMalformedMatrix, "x")))
	assert.Equal(t, "opt: negative cost: cost[0][1] = -1", cellError(ErrNegativeCost, 0, 1, "cost[0][1] = %v", -1).Error())
}
