package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourplan/internal/cache"
	"tourplan/internal/config"
	"tourplan/internal/model"
	"tourplan/internal/opt"
)

func f(v float64) *float64 { return &v }

func newTestPlanner(c cache.Cache) *Planner {
	return New(c, 0, config.Default().Optimizer, nil)
}

func squareRequest() model.OptimizeRequest {
	return model.OptimizeRequest{
		Matrix: [][]*float64{
			{f(0), f(1), f(2), f(1)},
			{f(1), f(0), f(1), f(2)},
			{f(2), f(1), f(0), f(1)},
			{f(1), f(2), f(1), f(0)},
		},
		Unit:   "meters",
		Labels: []string{"depot", "a", "b", "c"},
	}
}

// trimStops keeps the first n stops of r's matrix.
func trimStops(r *model.OptimizeRequest, n int) {
	r.Matrix = r.Matrix[:n]
	for i := range r.Matrix {
		r.Matrix[i] = r.Matrix[i][:n]
	}
}

func TestPrepare_Matrix(t *testing.T) {
	p := newTestPlanner(nil)
	req := squareRequest()
	req.Matrix[0][2] = nil

	prob, err := p.Prepare(req)
	require.NoError(t, err)
	assert.Equal(t, 4, prob.Matrix.N())
	assert.True(t, opt.IsUnreachable(prob.Matrix.At(0, 2)))
	assert.Equal(t, opt.RouteConstraint{Start: 0, End: 0}, prob.Constraint)
	assert.Equal(t, opt.UnitMeters, prob.Unit)
	assert.Equal(t, opt.AlgoAuto, prob.Options.Algorithm)
	assert.Equal(t, 4, prob.Options.Restarts)
	assert.Equal(t, opt.Budget{}, prob.Options.Budget)
}

func TestPrepare_Points(t *testing.T) {
	p := newTestPlanner(nil)
	end := 2
	prob, err := p.Prepare(model.OptimizeRequest{
		Points: []model.GeoPoint{{Lat: 52.52, Lng: 13.405}, {Lat: 52.50, Lng: 13.40}, {Lat: 52.53, Lng: 13.38}},
		Mode:   "walking",
		End:    &end,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, prob.Matrix.N())
	assert.Equal(t, opt.UnitSeconds, prob.Unit)
	assert.Equal(t, opt.RouteConstraint{Start: 0, End: 2}, prob.Constraint)
	assert.Greater(t, prob.Matrix.At(0, 1), 0.0)
}

func TestPrepare_DefaultTimeBudget(t *testing.T) {
	limits := config.Default().Optimizer
	limits.TimeBudgetMs = 250
	p := New(nil, 0, limits, nil)

	prob, err := p.Prepare(squareRequest())
	require.NoError(t, err)
	assert.Equal(t, opt.TimeBudget(250_000_000), prob.Options.Budget)

	req := squareRequest()
	req.Passes = 3
	prob, err = p.Prepare(req)
	require.NoError(t, err)
	assert.Equal(t, opt.PassBudget(3), prob.Options.Budget)
}

func TestPrepare_Rejects(t *testing.T) {
	limits := config.Default().Optimizer
	limits.MaxStops = 3
	p := New(nil, 0, limits, nil)

	tests := []struct {
		name   string
		mutate func(*model.OptimizeRequest)
	}{
		{name: "nothing", mutate: func(r *model.OptimizeRequest) { r.Matrix = nil; r.Labels = nil }},
		{name: "both", mutate: func(r *model.OptimizeRequest) { r.Points = []model.GeoPoint{{}, {}} }},
		{name: "too many stops", mutate: func(r *model.OptimizeRequest) {}},
		{name: "mode with matrix", mutate: func(r *model.OptimizeRequest) { r.Mode = "driving" }},
		{name: "unknown unit", mutate: func(r *model.OptimizeRequest) { r.Unit = "furlongs" }},
		{name: "labels", mutate: func(r *model.OptimizeRequest) { trimStops(r, 3); r.Labels = []string{"x"} }},
		{name: "restarts", mutate: func(r *model.OptimizeRequest) { trimStops(r, 3); r.Labels = nil; r.Restarts = 1000 }},
		{name: "time budget", mutate: func(r *model.OptimizeRequest) { trimStops(r, 3); r.Labels = nil; r.TimeBudgetMs = 10_000_000 }},
		{name: "negative", mutate: func(r *model.OptimizeRequest) { trimStops(r, 3); r.Labels = nil; r.Passes = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := squareRequest()
			tt.mutate(&req)
			_, err := p.Prepare(req)
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.True(t, IsInputError(err))
			assert.NotErrorIs(t, err, opt.ErrMalformedMatrix)
		})
	}

	req := squareRequest()
	trimStops(&req, 3)
	req.Labels = nil
	_, err := p.Prepare(req)
	require.NoError(t, err, "the trimmed fixture itself is valid")

	t.Run("points mode", func(t *testing.T) {
		_, err := p.Prepare(model.OptimizeRequest{Points: []model.GeoPoint{{}, {Lat: 1}}, Mode: "teleport"})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
	t.Run("bad coordinate", func(t *testing.T) {
		_, err := p.Prepare(model.OptimizeRequest{Points: []model.GeoPoint{{}, {Lat: 91}}})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
	t.Run("ragged matrix", func(t *testing.T) {
		_, err := p.Prepare(model.OptimizeRequest{Matrix: [][]*float64{{f(0), f(1)}, {f(1)}}})
		require.Error(t, err)
		assert.True(t, IsInputError(err))
		assert.False(t, errors.Is(err, ErrInvalidRequest))
	})
}

func TestSolve(t *testing.T) {
	p := newTestPlanner(nil)
	prob, err := p.Prepare(squareRequest())
	require.NoError(t, err)

	rep, cached, err := p.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 4.0, rep.TotalCost)
	assert.Len(t, rep.Tour, 5)
	assert.Equal(t, "depot", rep.Labels[0])
	assert.Equal(t, "depot", rep.Labels[4])
	assert.Equal(t, "0.00 km", rep.TotalFormatted)
}

func TestSolve_ReachabilityError(t *testing.T) {
	p := newTestPlanner(nil)
	req := squareRequest()
	for i := range req.Matrix {
		if i != 2 {
			req.Matrix[i][2] = nil
		}
	}
	prob, err := p.Prepare(req)
	require.NoError(t, err)
	_, _, err = p.Solve(context.Background(), prob, nil)
	require.Error(t, err)
	assert.True(t, opt.IsReachabilityError(err))
	assert.False(t, IsInputError(err))
}

func TestSolve_CachesDeterministicResults(t *testing.T) {
	c := cache.NewMemory()
	limits := config.Default().Optimizer
	limits.Algorithm = string(opt.AlgoLocalSearch)
	p := New(c, 0, limits, nil)

	req := squareRequest()
	req.Passes = 2
	prob, err := p.Prepare(req)
	require.NoError(t, err)

	passes := 0
	first, cached, err := p.Solve(context.Background(), prob, func(opt.PassInfo) { passes++ })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Positive(t, passes)

	// Labels are not part of the key; a relabelled request hits the cache.
	req.Labels = []string{"hq", "w", "x", "y"}
	prob, err = p.Prepare(req)
	require.NoError(t, err)
	passes = 0
	again, cached, err := p.Solve(context.Background(), prob, func(opt.PassInfo) { passes++ })
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Zero(t, passes)
	assert.Equal(t, first.Tour, again.Tour)
	assert.Equal(t, first.TotalCost, again.TotalCost)
	assert.Equal(t, "hq", again.Labels[0])
	assert.Equal(t, "hq", again.Legs[0].FromLabel)
}

func TestSolve_TimeBudgetNotCached(t *testing.T) {
	c := cache.NewMemory()
	p := New(c, 0, config.Default().Optimizer, nil)
	req := squareRequest()
	req.TimeBudgetMs = 50
	prob, err := p.Prepare(req)
	require.NoError(t, err)

	_, _, err = p.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	_, cached, err := p.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.False(t, cached)
}

func ringRows(n int) [][]*float64 {
	rows := make([][]*float64, n)
	for i := range rows {
		rows[i] = make([]*float64, n)
		for j := range rows[i] {
			if i == j {
				rows[i][j] = f(0)
			} else {
				rows[i][j] = f(float64((i*7+j*13)%29 + 1))
			}
		}
	}
	return rows
}

func TestSolve_CancelledRunNotCached(t *testing.T) {
	limits := config.Default().Optimizer
	limits.Algorithm = string(opt.AlgoLocalSearch)
	p := New(cache.NewMemory(), 0, limits, nil)
	prob, err := p.Prepare(model.OptimizeRequest{Matrix: ringRows(30)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cut, cached, err := p.Solve(ctx, prob, nil)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, opt.StopTimeBudget, cut.Stats.Reason)

	full, cached, err := p.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.False(t, cached, "a cancelled run must not answer later requests")
	assert.Equal(t, opt.StopLocalOptimum, full.Stats.Reason)
	assert.LessOrEqual(t, full.TotalCost, cut.TotalCost)

	again, cached, err := p.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, full.Tour, again.Tour)
}
