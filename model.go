package sbmlsolver

// EventType distinguishes when an event's assignment values are captured.
// Type A events compute their assignment RHS at trigger-detection time;
// Type B events compute it at assignment-application time.
type EventType uint8

const (
	// EventTypeB evaluates its assignment against the state at the moment
	// the assignment is applied (possibly after a delay).
	EventTypeB EventType = iota
	// EventTypeA precomputes its assignment RHS at trigger-detection time.
	EventTypeA
)

// PopMode selects what PopState does with the model's mutations since the
// matching PushState.
type PopMode uint8

const (
	// PopDiscard rolls the model back to the pushed snapshot.
	PopDiscard PopMode = iota
	// PopKeep commits the mutations made since PushState.
	PopKeep
)

// Model is the collaborator a Driver requires. Implementations own the
// biochemical state, the event trigger functions and the event
// assignments; the Driver keeps the Model passed to Initialize until
// Close, and the caller must not mutate it between Advance calls.
//
// Model must not hold a strong back-reference to the Driver that is
// advancing it; if diagnostics need to reach back into the driver, that
// reference must be non-owning.
type Model interface {
	// StateSize returns N, the length of the continuous state vector.
	StateSize() int
	// NumEvents returns E, the number of declared events.
	NumEvents() int

	// GetState copies the model's current state into y, which has length
	// StateSize().
	GetState(y []float64)
	// SetState copies y, which has length StateSize(), into the model.
	SetState(y []float64)

	// EvalDerivatives computes dy/dt at (t, y) into ydot.
	EvalDerivatives(t float64, y, ydot []float64)
	// EvalEvents refreshes the event status array by evaluating every
	// trigger gap at (t, y) and recording its sign.
	EvalEvents(t float64, y []float64)
	// EventTriggerGaps returns the E continuous signals whose sign
	// changes define event roots. Only valid immediately after
	// EvalEvents or as the integrator's root function.
	EventTriggerGaps(out []float64)

	// ComputeEventAssignment precomputes the assignment RHS for event i at
	// detection time; only meaningful for Type-A events.
	ComputeEventAssignment(i int) []float64
	// PerformEventAssignment applies event i's assignment. values is the
	// slice returned by ComputeEventAssignment for Type-A events, or nil
	// for Type-B events (which must recompute against current state).
	PerformEventAssignment(i int, values []float64)

	// EventDelay returns event i's delay, evaluated against current state;
	// always >= 0.
	EventDelay(i int) float64
	// EventPriority returns event i's priority; higher fires first, NaN
	// is unordered with respect to other NaN priorities.
	EventPriority(i int) float64
	// EventPersistent reports whether event i, once triggered true,
	// remains armed even if the trigger falls back to false before its
	// delay elapses.
	EventPersistent(i int) bool
	// EventType reports whether event i is Type A or Type B.
	EventType(i int) EventType

	// EventStatus reports the last-evaluated truth value of trigger i.
	EventStatus(i int) bool
	// SetEventStatus overwrites the last-evaluated truth value of trigger
	// i; used by the RootHandler to clear a fired event.
	SetEventStatus(i int, status bool)

	// ConvertToConcentrations rescales the state from amounts to
	// concentrations in place.
	ConvertToConcentrations()
	// ConvertToAmounts rescales the state from concentrations to amounts
	// in place.
	ConvertToAmounts()
	// UpdateDependentSpecies recomputes species defined in terms of
	// others (assignment rules, reaction rates used only for output).
	UpdateDependentSpecies()
	// ComputeConservedTotals recomputes the conserved-moiety totals used
	// to reconstruct dependent species.
	ComputeConservedTotals()
	// ConservedTotalsChanged reports whether the last event assignment
	// touched a species participating in a conservation law.
	ConservedTotalsChanged() bool
	// ResetEvents clears all event bookkeeping; called once at Driver
	// initialization.
	ResetEvents()
	// TestConstraints evaluates model constraints at the current state.
	// A non-nil error is reported as a warning by the Driver; the
	// simulation continues regardless.
	TestConstraints() error

	// PushState snapshots whatever subset of model state EvalEvents reads,
	// so the RootHandler can probe trigger values without committing.
	PushState()
	// PopState restores (PopDiscard) or commits (PopKeep) the snapshot
	// taken by the most recent PushState.
	PopState(mode PopMode)
}
