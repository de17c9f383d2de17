package edmd

import "fmt"

// FatalError is the error kind the event loop reports through
// Scheduler.Err. Invariant violations, exhausted PELs, and numerical drift
// are all fatal: the core never tries to recover from them internally, it
// surfaces them upward with enough simulation context to diagnose. Stale
// events and BPQ overflow are handled inline and never become a FatalError.
// Setup failures (Scheduler.Initialise, LoadConfig) are returned as
// ordinary wrapped errors instead.
type FatalError struct {
	// Invariant names the violated invariant, e.g. "event.time_not_monotonic"
	// or "neighbour.axis_count_too_small".
	Invariant string
	// Data carries the participating simulation context: current time,
	// event count, participating PIDs, etc.
	Data map[string]any
	// Cause, if non-nil, is the underlying error that triggered this one.
	Cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Invariant, e.Data)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// NewFatalError builds a FatalError for the named invariant with the given
// context data.
func NewFatalError(invariant string, data map[string]any) *FatalError {
	return &FatalError{Invariant: invariant, Data: data}
}

// Invariant names, kept as constants so every call site and every test
// agrees on the exact string.
const (
	InvariantMonotonicTime     = "event.time_not_monotonic"
	InvariantAxisCount         = "neighbour.axis_count_too_small"
	InvariantExhaustedPEL      = "pel.exhausted"
	InvariantNumericalDrift    = "event.numerical_drift"
	InvariantCellOwnership     = "neighbour.cell_ownership"
	InvariantCounterOrdering   = "invalidation.counter_bumped_after_clear"
)
