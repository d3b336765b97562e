// Package opt orders the stops of a single-vehicle itinerary.
//
// Optimize takes a CostMatrix and a RouteConstraint and returns a tour with
// fixed first and last stops and near-minimal total cost. It builds a
// nearest-neighbour tour and improves it with 2-opt and Or-opt moves, which
// respect asymmetric costs. It can also run seeded restarts in parallel, or
// solve small instances exactly with Held-Karp.
package opt

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

type restartResult struct {
	tour   []int
	cost   float64
	reason StopReason
	passes int
	two    int
	or     int
}

// Optimize validates its input and computes a tour. An exhausted budget or a
// cancelled ctx is not an error: the best tour found so far is returned.
// Any returned error is an *Error; no partial tour accompanies it.
func Optimize(ctx context.Context, m *CostMatrix, c RouteConstraint, opts Options) (Result, error) {
	began := time.Now()
	if err := opts.Budget.validate(); err != nil {
		return Result{}, err
	}
	if err := Validate(m, c); err != nil {
		return Result{}, err
	}
	opts = withDefaults(opts)
	switch opts.Algorithm {
	case AlgoLocalSearch, AlgoExact, AlgoAuto:
	default:
		return Result{}, newError(ErrUnknownAlgorithm, "%q", opts.Algorithm)
	}
	n := m.N()

	if n == 2 {
		return trivial(m, c, opts, began)
	}
	if opts.Algorithm == AlgoExact || opts.Algorithm == AlgoAuto && n <= opts.ExactThreshold {
		tour, cost, err := heldKarp(m, c)
		if err != nil {
			return Result{}, err
		}
		return Result{Tour: tour, Cost: cost, Stats: Stats{
			Restarts:  1,
			Reason:    StopExact,
			Algorithm: AlgoExact,
			Elapsed:   time.Since(began),
		}}, nil
	}

	base, err := nearestNeighbor(m, c)
	if err != nil {
		return Result{}, err
	}
	baseCost := TourCost(m, base)

	if opts.Budget.Time > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Budget.Time)
		defer cancel()
	}

	results := make([]restartResult, opts.Restarts)
	var g errgroup.Group
	g.SetLimit(opts.Parallelism)
	for r := 0; r < opts.Restarts; r++ {
		g.Go(func() error {
			tour := append([]int(nil), base...)
			if r > 0 {
				tour = perturb(m, tour, rand.New(rand.NewSource(opts.Seed+int64(r))))
			}
			s := newSearch(m, tour)
			var hook func(pass, two, or int, cost float64)
			if opts.OnPass != nil {
				hook = func(pass, two, or int, cost float64) {
					opts.OnPass(PassInfo{Restart: r, Pass: pass, Cost: cost, TwoOptMoves: two, OrOptMoves: or})
				}
			}
			reason := s.run(ctx, opts.Budget, hook)
			results[r] = restartResult{tour: s.tour, cost: s.cost, reason: reason, passes: s.passes, two: s.twoOptMoves, or: s.orOptMoves}
			if opts.Logger != nil {
				opts.Logger.Debug("restart finished", "restart", r, "cost", s.cost, "passes", s.passes, "reason", reason)
			}
			return nil
		})
	}
	_ = g.Wait()

	best, total := 0, 0
	for r, res := range results {
		total += res.passes
		if res.cost < results[best].cost-eps {
			best = r
		}
	}
	win := results[best]
	// Restart 0 never ends above the construction cost; keep the guarantee
	// exact even when float noise would favour another restart.
	if win.cost > baseCost {
		win, best = results[0], 0
	}

	return Result{Tour: win.tour, Cost: win.cost, Stats: Stats{
		ConstructionCost: baseCost,
		Passes:           win.passes,
		TwoOptMoves:      win.two,
		OrOptMoves:       win.or,
		TotalPasses:      total,
		Restarts:         opts.Restarts,
		BestRestart:      best,
		Reason:           win.reason,
		Algorithm:        AlgoLocalSearch,
		Elapsed:          time.Since(began),
	}}, nil
}

func trivial(m *CostMatrix, c RouteConstraint, opts Options, began time.Time) (Result, error) {
	tour, err := nearestNeighbor(m, c)
	if err != nil {
		return Result{}, err
	}
	cost := TourCost(m, tour)
	return Result{Tour: tour, Cost: cost, Stats: Stats{
		ConstructionCost: cost,
		Restarts:         1,
		Reason:           StopTrivial,
		Algorithm:        opts.Algorithm,
		Elapsed:          time.Since(began),
	}}, nil
}

func withDefaults(o Options) Options {
	if o.Algorithm == "" {
		o.Algorithm = AlgoLocalSearch
	}
	if o.ExactThreshold <= 0 {
		o.ExactThreshold = DefaultExactThreshold
	}
	if o.ExactThreshold > MaxExactStops {
		o.ExactThreshold = MaxExactStops
	}
	if o.Restarts <= 0 {
		o.Restarts = 1
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	return o
}
