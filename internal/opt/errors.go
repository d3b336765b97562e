package opt

import (
	"errors"
	"fmt"
)

// Input errors: the caller supplied data the optimizer cannot work with.
var (
	ErrDegenerateInput   = errors.New("degenerate input")
	ErrMalformedMatrix   = errors.New("malformed matrix")
	ErrNegativeCost      = errors.New("negative cost")
	ErrInvalidConstraint = errors.New("invalid route constraint")
	ErrInvalidBudget     = errors.New("invalid budget")
	ErrTooManyStops      = errors.New("too many stops for exact search")
	ErrUnknownAlgorithm  = errors.New("unknown algorithm")
)

// Reachability errors: the problem as posed has no solution.
var (
	ErrUnreachableStart = errors.New("unreachable start")
	ErrUnreachableEnd   = errors.New("unreachable end")
	ErrNoFeasibleTour   = errors.New("no feasible tour")
)

// Error is the typed failure returned by Validate and Optimize.
// Kind is one of the Err* sentinels and is matched by errors.Is.
// Stop, Row and Col are -1 when they do not apply.
type Error struct {
	Kind   error
	Stop   int
	Row    int
	Col    int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "opt: " + e.Kind.Error()
	}
	return "opt: " + e.Kind.Error() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Stop: -1, Row: -1, Col: -1, Detail: fmt.Sprintf(format, args...)}
}

func stopError(kind error, stop int, format string, args ...any) *Error {
	e := newError(kind, format, args...)
	e.Stop = stop
	return e
}

func cellError(kind error, row, col int, format string, args ...any) *Error {
	e := newError(kind, format, args...)
	e.Row, e.Col = row, col
	return e
}

// IsInputError reports whether err means the caller's input is invalid.
func IsInputError(err error) bool {
	for _, k := range []error{ErrDegenerateInput, ErrMalformedMatrix, ErrNegativeCost, ErrInvalidConstraint, ErrInvalidBudget, ErrTooManyStops, ErrUnknownAlgorithm} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// IsReachabilityError reports whether err means no tour satisfies the input.
func IsReachabilityError(err error) bool {
	return errors.Is(err, ErrUnreachableStart) || errors.Is(err, ErrUnreachableEnd) || errors.Is(err, ErrNoFeasibleTour)
}
