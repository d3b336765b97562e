package opt

import (
	"time"

	"github.com/charmbracelet/log"
)

// RouteConstraint fixes the first and last stop of the tour. Start == End
// asks for a closed tour that returns to the origin.
type RouteConstraint struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Closed reports whether the tour returns to its origin.
func (c RouteConstraint) Closed() bool { return c.Start == c.End }

// tourLen is the length of a complete tour over n stops. Closed tours repeat
// the origin as their final entry.
func (c RouteConstraint) tourLen(n int) int {
	if c.Closed() {
		return n + 1
	}
	return n
}

// Budget bounds the improvement phase. Passes and Time are mutually
// exclusive; the zero Budget searches until a local optimum.
//
// A Passes budget is reproducible: equal inputs, seed and restart count give
// an identical tour and cost on every run. A Time budget is best-effort. Under
// load fewer passes may complete before the deadline, so repeated runs can
// return different (always feasible) tours.
type Budget struct {
	Passes int
	Time   time.Duration
}

// PassBudget limits the search to n improvement passes per restart.
func PassBudget(n int) Budget { return Budget{Passes: n} }

// TimeBudget limits the search to wall-clock d across all restarts.
func TimeBudget(d time.Duration) Budget { return Budget{Time: d} }

func (b Budget) validate() error {
	if b.Passes < 0 || b.Time < 0 {
		return newError(ErrInvalidBudget, "budget must not be negative")
	}
	if b.Passes > 0 && b.Time > 0 {
		return newError(ErrInvalidBudget, "passes and time budgets are mutually exclusive")
	}
	return nil
}

// Deterministic reports whether results under b are reproducible.
func (b Budget) Deterministic() bool { return b.Time == 0 }

// Algorithm selects the solver.
type Algorithm string

const (
	// AlgoLocalSearch builds a nearest-neighbour tour and improves it with
	// 2-opt and Or-opt.
	AlgoLocalSearch Algorithm = "local-search"
	// AlgoExact solves the instance exactly with Held-Karp.
	AlgoExact Algorithm = "exact"
	// AlgoAuto picks AlgoExact up to Options.ExactThreshold stops.
	AlgoAuto Algorithm = "auto"
)

const (
	// MaxExactStops is the largest instance AlgoExact accepts.
	MaxExactStops = 16
	// DefaultExactThreshold is the AlgoAuto cut-over.
	DefaultExactThreshold = 12
)

// Options tune Optimize. The zero value runs a single deterministic
// local-search restart to a local optimum.
type Options struct {
	Budget         Budget
	Algorithm      Algorithm
	ExactThreshold int
	// Restarts is the number of independent local searches; restart 0 starts
	// from the nearest-neighbour tour, later ones from seeded perturbations.
	Restarts    int
	Seed        int64
	Parallelism int
	// OnPass is called after every improvement pass. With Parallelism > 1 it
	// is called from several goroutines.
	OnPass func(PassInfo)
	Logger *log.Logger
}

// PassInfo describes one completed improvement pass.
type PassInfo struct {
	Restart     int     `json:"restart"`
	Pass        int     `json:"pass"`
	Cost        float64 `json:"cost"`
	TwoOptMoves int     `json:"twoOptMoves"`
	OrOptMoves  int     `json:"orOptMoves"`
}

// StopReason says why the search ended.
type StopReason string

const (
	StopLocalOptimum StopReason = "local-optimum"
	StopPassBudget   StopReason = "pass-budget"
	StopTimeBudget   StopReason = "time-budget"
	StopExact        StopReason = "exact"
	StopTrivial      StopReason = "trivial"
)

// Stats summarises a run. Per-restart counters describe the winning restart.
type Stats struct {
	ConstructionCost float64       `json:"constructionCost"`
	Passes           int           `json:"passes"`
	TwoOptMoves      int           `json:"twoOptMoves"`
	OrOptMoves       int           `json:"orOptMoves"`
	TotalPasses      int           `json:"totalPasses"`
	Restarts         int           `json:"restarts"`
	BestRestart      int           `json:"bestRestart"`
	Reason           StopReason    `json:"reason"`
	Algorithm        Algorithm     `json:"algorithm"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Result is the optimizer output. Tour starts at the constraint's Start and
// ends at its End; Cost is its directed TourCost.
type Result struct {
	Tour  []int   `json:"tour"`
	Cost  float64 `json:"cost"`
	Stats Stats   `json:"stats"`
}
