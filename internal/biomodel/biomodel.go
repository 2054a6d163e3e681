// Package biomodel is a minimal sbmlsolver.Model implementation used
// only by this module's own tests: a caller supplies a derivative
// function and a list of closures-based events instead of a compiled
// SBML model, so the driver and root handler can be exercised without
// a real model compiler.
package biomodel

import "github.com/Tubbz-alt/sbmlsolver"

// EventSpec describes one event entirely through closures over the
// current state.
type EventSpec struct {
	// Gap returns the continuous trigger signal at (t, y); a positive
	// value means the trigger is currently true.
	Gap func(t float64, y []float64) float64
	// Delay is the fixed delay applied to this event's assignment.
	Delay float64
	// Priority orders simultaneous firings; higher fires first.
	Priority float64
	// Persistent controls whether a pending, not-yet-applied assignment
	// survives the trigger falling back to false.
	Persistent bool
	// Type selects when Assign's return value is captured.
	Type sbmlsolver.EventType
	// Assign returns the full post-assignment state given the current
	// state; called at detection time for Type-A events and at
	// application time for Type-B events.
	Assign func(y []float64) []float64
}

// Model is a closures-driven sbmlsolver.Model.
type Model struct {
	Deriv  func(t float64, y, ydot []float64)
	Events []EventSpec

	y      []float64
	status []bool
	gaps   []float64

	snapY      []float64
	snapStatus []bool

	// ConservedChanged is returned by ConservedTotalsChanged; tests set
	// it directly to exercise that branch.
	ConservedChanged bool
	// ConstraintErr is returned by TestConstraints.
	ConstraintErr error

	// Fired records, in application order, the event ids that were
	// actually applied via PerformEventAssignment.
	Fired []int
}

// New returns a Model starting at y0 with the given derivative function
// and events.
func New(y0 []float64, deriv func(t float64, y, ydot []float64), events []EventSpec) *Model {
	return &Model{
		Deriv:  deriv,
		Events: events,
		y:      append([]float64(nil), y0...),
		status: make([]bool, len(events)),
		gaps:   make([]float64, len(events)),
	}
}

func (m *Model) StateSize() int { return len(m.y) }
func (m *Model) NumEvents() int { return len(m.Events) }

func (m *Model) GetState(y []float64) { copy(y, m.y) }
func (m *Model) SetState(y []float64) { copy(m.y, y) }

// State returns a copy of the current state, for test assertions.
func (m *Model) State() []float64 { return append([]float64(nil), m.y...) }

func (m *Model) EvalDerivatives(t float64, y, ydot []float64) {
	m.Deriv(t, y, ydot)
}

func (m *Model) EvalEvents(t float64, y []float64) {
	for i, ev := range m.Events {
		g := ev.Gap(t, y)
		m.gaps[i] = g
		m.status[i] = g > 0
	}
}

func (m *Model) EventTriggerGaps(out []float64) {
	copy(out, m.gaps)
}

func (m *Model) ComputeEventAssignment(i int) []float64 {
	return m.Events[i].Assign(m.y)
}

func (m *Model) PerformEventAssignment(i int, values []float64) {
	if values == nil {
		values = m.Events[i].Assign(m.y)
	}
	m.SetState(values)
	m.Fired = append(m.Fired, i)
}

func (m *Model) EventDelay(i int) float64        { return m.Events[i].Delay }
func (m *Model) EventPriority(i int) float64     { return m.Events[i].Priority }
func (m *Model) EventPersistent(i int) bool      { return m.Events[i].Persistent }
func (m *Model) EventType(i int) sbmlsolver.EventType { return m.Events[i].Type }

func (m *Model) EventStatus(i int) bool             { return m.status[i] }
func (m *Model) SetEventStatus(i int, status bool)  { m.status[i] = status }

func (m *Model) ConvertToConcentrations()  {}
func (m *Model) ConvertToAmounts()         {}
func (m *Model) UpdateDependentSpecies()   {}
func (m *Model) ComputeConservedTotals()   {}
func (m *Model) ConservedTotalsChanged() bool { return m.ConservedChanged }
func (m *Model) ResetEvents() {
	for i := range m.status {
		m.status[i] = false
	}
	m.Fired = nil
}
func (m *Model) TestConstraints() error { return m.ConstraintErr }

func (m *Model) PushState() {
	m.snapY = append([]float64(nil), m.y...)
	m.snapStatus = append([]bool(nil), m.status...)
}

func (m *Model) PopState(mode sbmlsolver.PopMode) {
	if mode == sbmlsolver.PopDiscard {
		m.y = m.snapY
		m.status = m.snapStatus
	}
}
