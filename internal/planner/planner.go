// Package planner turns an optimize request into a report: it builds the
// cost matrix, applies configured defaults and limits, runs the optimizer and
// caches reproducible results.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"tourplan/internal/cache"
	"tourplan/internal/config"
	"tourplan/internal/matrixsrc"
	"tourplan/internal/metrics"
	"tourplan/internal/model"
	"tourplan/internal/opt"
)

// ErrInvalidRequest marks requests rejected before the optimizer runs.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// IsInputError reports whether err is the caller's fault.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || opt.IsInputError(err)
}

// Problem is a prepared request, ready to solve.
type Problem struct {
	Matrix     *opt.CostMatrix
	Constraint opt.RouteConstraint
	Options    opt.Options
	Labels     []string
	Unit       opt.Unit
}

// Planner is safe for concurrent use.
type Planner struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Limits   config.Optimizer
	Logger   *log.Logger
}

// New returns a Planner; a nil cache disables caching.
func New(c cache.Cache, ttl time.Duration, limits config.Optimizer, logger *log.Logger) *Planner {
	if c == nil {
		c = cache.Null{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{Cache: c, CacheTTL: ttl, Limits: limits, Logger: logger}
}

// Prepare checks req against the limits and builds its cost matrix.
func (p *Planner) Prepare(req model.OptimizeRequest) (Problem, error) {
	var (
		prob Problem
		err  error
	)
	switch {
	case len(req.Matrix) > 0 && len(req.Points) > 0:
		return Problem{}, invalid("matrix and points are mutually exclusive")
	case len(req.Matrix) > 0:
		if req.Mode != "" {
			return Problem{}, invalid("mode applies to points only")
		}
		switch opt.Unit(req.Unit) {
		case "", opt.UnitSeconds, opt.UnitMeters:
			prob.Unit = opt.Unit(req.Unit)
		default:
			return Problem{}, invalid("unknown unit %q", req.Unit)
		}
		if err := p.checkStops(len(req.Matrix)); err != nil {
			return Problem{}, err
		}
		prob.Matrix, err = opt.NewCostMatrix(req.CostRows())
		if err != nil {
			return Problem{}, err
		}
	case len(req.Points) > 0:
		if req.Unit != "" {
			return Problem{}, invalid("unit is derived from mode for points")
		}
		mode, err := matrixsrc.ParseMode(req.Mode)
		if err != nil {
			return Problem{}, invalid("%v", err)
		}
		if err := p.checkStops(len(req.Points)); err != nil {
			return Problem{}, err
		}
		pts := make([]matrixsrc.Point, len(req.Points))
		for i, gp := range req.Points {
			pts[i] = matrixsrc.Point{Lat: gp.Lat, Lng: gp.Lng}
		}
		prob.Matrix, err = matrixsrc.Haversine(pts, mode)
		if err != nil {
			return Problem{}, invalid("%v", err)
		}
		prob.Unit = mode.Unit()
	default:
		return Problem{}, invalid("one of matrix or points is required")
	}

	if req.Labels != nil && len(req.Labels) != prob.Matrix.N() {
		return Problem{}, invalid("%d labels for %d stops", len(req.Labels), prob.Matrix.N())
	}
	prob.Labels = req.Labels
	prob.Constraint = req.Constraint()

	o, err := p.options(req)
	if err != nil {
		return Problem{}, err
	}
	prob.Options = o
	return prob, nil
}

func (p *Planner) checkStops(n int) error {
	if p.Limits.MaxStops > 0 && n > p.Limits.MaxStops {
		return invalid("%d stops exceeds the limit of %d", n, p.Limits.MaxStops)
	}
	return nil
}

// options fills unset request fields from the limits. Restarts is always
// resolved so that equal requests map to equal cache keys.
func (p *Planner) options(req model.OptimizeRequest) (opt.Options, error) {
	if req.Passes < 0 || req.TimeBudgetMs < 0 || req.Restarts < 0 {
		return opt.Options{}, invalid("passes, timeBudgetMs and restarts must not be negative")
	}
	if p.Limits.MaxTimeBudgetMs > 0 && req.TimeBudgetMs > p.Limits.MaxTimeBudgetMs {
		return opt.Options{}, invalid("timeBudgetMs %d exceeds the limit of %d", req.TimeBudgetMs, p.Limits.MaxTimeBudgetMs)
	}
	if p.Limits.MaxRestarts > 0 && req.Restarts > p.Limits.MaxRestarts {
		return opt.Options{}, invalid("restarts %d exceeds the limit of %d", req.Restarts, p.Limits.MaxRestarts)
	}
	o := req.Options()
	if o.Algorithm == "" {
		o.Algorithm = opt.Algorithm(p.Limits.Algorithm)
	}
	if req.Passes == 0 && req.TimeBudgetMs == 0 && p.Limits.TimeBudgetMs > 0 {
		o.Budget = opt.TimeBudget(time.Duration(p.Limits.TimeBudgetMs) * time.Millisecond)
	}
	if o.Restarts == 0 {
		o.Restarts = p.Limits.Restarts
	}
	if o.Restarts == 0 {
		o.Restarts = 1
	}
	o.ExactThreshold = p.Limits.ExactThreshold
	o.Parallelism = p.Limits.Parallelism
	o.Logger = p.Logger
	return o, nil
}

// Solve optimizes prob and builds its report. onPass may be nil. cached is
// true when the report came from the cache; no passes are reported then.
func (p *Planner) Solve(ctx context.Context, prob Problem, onPass func(opt.PassInfo)) (rep opt.Report, cached bool, err error) {
	key, cacheable := cache.ResultKey(prob.Matrix, prob.Constraint, prob.Options)
	if cacheable {
		if rep, ok := p.lookup(ctx, key); ok {
			rep.Labels = nil
			return p.relabel(prob, rep), true, nil
		}
	}

	o := prob.Options
	o.OnPass = func(pi opt.PassInfo) {
		metrics.OptimizerPasses.Inc()
		if onPass != nil {
			onPass(pi)
		}
	}

	metrics.RunsInFlight.Inc()
	res, err := opt.Optimize(ctx, prob.Matrix, prob.Constraint, o)
	metrics.RunsInFlight.Dec()
	algo := string(o.Algorithm)
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues(algo, outcome(err)).Inc()
		return opt.Report{}, false, err
	}
	metrics.OptimizerRuns.WithLabelValues(string(res.Stats.Algorithm), "succeeded").Inc()
	metrics.OptimizerDuration.WithLabelValues(string(res.Stats.Algorithm)).Observe(res.Stats.Elapsed.Seconds())
	if res.Stats.ConstructionCost > 0 {
		metrics.OptimizerGain.Observe(res.Cost / res.Stats.ConstructionCost)
	}

	rep, err = opt.NewReport(prob.Matrix, res, prob.Labels, prob.Unit)
	if err != nil {
		return opt.Report{}, false, err
	}
	p.Logger.Debug("optimized", "stops", prob.Matrix.N(), "cost", res.Cost, "construction", res.Stats.ConstructionCost,
		"passes", res.Stats.TotalPasses, "reason", res.Stats.Reason, "elapsed", res.Stats.Elapsed)

	// a cancelled run stops early; only a finished search is reproducible
	if cacheable && ctx.Err() == nil && res.Stats.Reason != opt.StopTimeBudget {
		p.store(ctx, key, rep)
	}
	return rep, false, nil
}

func (p *Planner) lookup(ctx context.Context, key string) (opt.Report, bool) {
	data, ok, err := p.Cache.Get(ctx, key)
	if err != nil {
		p.Logger.Warn("result cache get failed", "err", err)
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return opt.Report{}, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return opt.Report{}, false
	}
	var rep opt.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		p.Logger.Warn("result cache entry unreadable", "key", key, "err", err)
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return opt.Report{}, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return rep, true
}

// store caches rep without labels; labels do not affect the tour.
func (p *Planner) store(ctx context.Context, key string, rep opt.Report) {
	rep.Labels = nil
	legs := make([]opt.Leg, len(rep.Legs))
	for i, l := range rep.Legs {
		l.FromLabel, l.ToLabel = "", ""
		legs[i] = l
	}
	rep.Legs = legs
	data, err := json.Marshal(rep)
	if err != nil {
		p.Logger.Warn("result cache encode failed", "err", err)
		return
	}
	if err := p.Cache.Set(ctx, key, data, p.CacheTTL); err != nil {
		p.Logger.Warn("result cache set failed", "err", err)
	}
}

// relabel attaches prob's labels to a cached report.
func (p *Planner) relabel(prob Problem, rep opt.Report) opt.Report {
	if prob.Labels == nil {
		return rep
	}
	rep.Labels = make([]string, len(rep.Tour))
	for i, stop := range rep.Tour {
		rep.Labels[i] = prob.Labels[stop]
	}
	for i := range rep.Legs {
		rep.Legs[i].FromLabel = prob.Labels[rep.Legs[i].From]
		rep.Legs[i].ToLabel = prob.Labels[rep.Legs[i].To]
	}
	return rep
}

func outcome(err error) string {
	switch {
	case opt.IsReachabilityError(err):
		return "unreachable"
	case opt.IsInputError(err):
		return "invalid"
	default:
		return "error"
	}
}
