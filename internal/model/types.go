package model

import (
	"errors"
	"time"

	"tourplan/internal/opt"
)

// OptimizeRequest is the body of POST /v1/optimize and the problem file read
// by the CLI. Exactly one of Matrix or Points is set.
type OptimizeRequest struct {
	// Matrix is a square cost table; null marks an unreachable pair.
	Matrix [][]*float64 `json:"matrix,omitempty"`
	// Unit names what Matrix measures: "seconds" or "meters".
	Unit   string     `json:"unit,omitempty"`
	Points []GeoPoint `json:"points,omitempty"`
	// Mode is distance, driving, cycling or walking; Points only.
	Mode   string   `json:"mode,omitempty"`
	Labels []string `json:"labels,omitempty"`

	Start int `json:"start"`
	// End defaults to Start, which asks for a round trip.
	End *int `json:"end,omitempty"`

	Passes       int    `json:"passes,omitempty"`
	TimeBudgetMs int    `json:"timeBudgetMs,omitempty"`
	Restarts     int    `json:"restarts,omitempty"`
	Seed         int64  `json:"seed,omitempty"`
	Algorithm    string `json:"algorithm,omitempty"`
	Async        bool   `json:"async,omitempty"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Constraint returns the requested endpoints.
func (r OptimizeRequest) Constraint() opt.RouteConstraint {
	c := opt.RouteConstraint{Start: r.Start, End: r.Start}
	if r.End != nil {
		c.End = *r.End
	}
	return c
}

// Budget maps passes / timeBudgetMs onto an opt.Budget. Conflicts are left
// for opt to reject.
func (r OptimizeRequest) Budget() opt.Budget {
	return opt.Budget{Passes: r.Passes, Time: time.Duration(r.TimeBudgetMs) * time.Millisecond}
}

// Options returns the optimizer options named by the request.
func (r OptimizeRequest) Options() opt.Options {
	return opt.Options{
		Budget:    r.Budget(),
		Algorithm: opt.Algorithm(r.Algorithm),
		Restarts:  r.Restarts,
		Seed:      r.Seed,
	}
}

// CostRows converts Matrix to plain rows, mapping null to opt.Unreachable.
func (r OptimizeRequest) CostRows() [][]float64 {
	rows := make([][]float64, len(r.Matrix))
	for i, row := range r.Matrix {
		rows[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				rows[i][j] = opt.Unreachable
			} else {
				rows[i][j] = *v
			}
		}
	}
	return rows
}

type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one optimization request and its outcome.
type Run struct {
	ID        string          `json:"id"`
	Status    RunStatus       `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Stops     int             `json:"stops"`
	Request   OptimizeRequest `json:"request"`
	Report    *opt.Report     `json:"report,omitempty"`
	Error     *RunError       `json:"error,omitempty"`
	Cached    bool            `json:"cached,omitempty"`
}

// RunError is the client-facing form of an *opt.Error.
type RunError struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	Stop   *int   `json:"stop,omitempty"`
	Row    *int   `json:"row,omitempty"`
	Col    *int   `json:"col,omitempty"`
}

// NewRunError flattens err; the position fields are set only when err is an
// *opt.Error that carries them.
func NewRunError(err error) *RunError {
	var oe *opt.Error
	if !errors.As(err, &oe) {
		return &RunError{Kind: "internal", Detail: err.Error()}
	}
	re := &RunError{Kind: oe.Kind.Error(), Detail: oe.Error()}
	if oe.Stop >= 0 {
		re.Stop = intPtr(oe.Stop)
	}
	if oe.Row >= 0 {
		re.Row = intPtr(oe.Row)
	}
	if oe.Col >= 0 {
		re.Col = intPtr(oe.Col)
	}
	return re
}

func intPtr(v int) *int { return &v }

// RunEvent is published on a run's event channel.
type RunEvent struct {
	Type  string         `json:"type"`
	RunID string         `json:"runId"`
	TS    time.Time      `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

const (
	EventRunStarted   = "run.started"
	EventRunPass      = "run.pass"
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)
