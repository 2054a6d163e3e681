package sbmlsolver_test

import (
	"math"
	"testing"

	"github.com/Tubbz-alt/sbmlsolver"
	"github.com/Tubbz-alt/sbmlsolver/internal/biomodel"
)

// TestAdvancePureDecay covers S1: a stiff linear IVP with no events
// should match its analytic solution to within the configured
// tolerance.
func TestAdvancePureDecay(t *testing.T) {
	m := biomodel.New([]float64{1}, func(t float64, y, ydot []float64) {
		ydot[0] = -y[0]
	}, nil)

	d := sbmlsolver.NewDriver()
	d.Configure(sbmlsolver.Options{AbsTol: 1e-12, RelTol: 1e-10, InitStep: 0.01, MaxSteps: 10000, FollowEvents: true})
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := d.Advance(0, 1.0); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	want := math.Exp(-1)
	if got := m.State()[0]; math.Abs(got-want) > 1e-6 {
		t.Fatalf("y(1) = %v, want within 1e-6 of %v", got, want)
	}
}

// TestAdvanceSingleEventNoDelay covers S2: an immediate assignment
// applies exactly once once its trigger crosses.
func TestAdvanceSingleEventNoDelay(t *testing.T) {
	events := []biomodel.EventSpec{{
		Gap:        func(t float64, y []float64) float64 { return t - 0.5 },
		Persistent: true,
		Type:       sbmlsolver.EventTypeB,
		Assign:     func(y []float64) []float64 { return []float64{10} },
	}}
	m := biomodel.New([]float64{5}, func(t float64, y, ydot []float64) { ydot[0] = 0 }, events)

	d := sbmlsolver.NewDriver()
	d.Configure(sbmlsolver.Options{AbsTol: 1e-10, RelTol: 1e-6, MaxSteps: 10000, FollowEvents: true})
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := d.Advance(0, 1.0); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if got := m.State()[0]; got != 10 {
		t.Fatalf("y(1) = %v, want 10", got)
	}
	if len(m.Fired) != 1 {
		t.Fatalf("event fired %d times, want exactly 1", len(m.Fired))
	}
}

// TestAdvanceDelayedEvent covers S3: a delayed assignment takes effect
// only once its fire time is reached.
func TestAdvanceDelayedEvent(t *testing.T) {
	events := []biomodel.EventSpec{{
		Gap:        func(t float64, y []float64) float64 { return t - 0.5 },
		Delay:      0.2,
		Persistent: true,
		Type:       sbmlsolver.EventTypeB,
		Assign:     func(y []float64) []float64 { return []float64{10} },
	}}
	m := biomodel.New([]float64{5}, func(t float64, y, ydot []float64) { ydot[0] = 0 }, events)

	d := sbmlsolver.NewDriver()
	d.Configure(sbmlsolver.Options{AbsTol: 1e-10, RelTol: 1e-6, MaxSteps: 10000, FollowEvents: true})
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if _, err := d.Advance(0, 0.6); err != nil {
		t.Fatalf("Advance to 0.6: %v", err)
	}
	if got := m.State()[0]; got != 5 {
		t.Fatalf("y(0.6) = %v, want 5 (assignment not yet due)", got)
	}

	if _, err := d.Advance(0.6, 0.1); err != nil {
		t.Fatalf("Advance to 0.7: %v", err)
	}
	if got := m.State()[0]; got != 10 {
		t.Fatalf("y(0.7) = %v, want 10", got)
	}
}

// TestAdvancePriorityOrder covers S4: simultaneous triggers apply their
// assignments in descending-priority order.
func TestAdvancePriorityOrder(t *testing.T) {
	trigger := func(t float64, y []float64) float64 { return t - 0.5 }
	events := []biomodel.EventSpec{
		{
			Gap: trigger, Priority: 2, Persistent: true, Type: sbmlsolver.EventTypeB,
			Assign: func(y []float64) []float64 { return []float64{y[0] + 1} },
		},
		{
			Gap: trigger, Priority: 1, Persistent: true, Type: sbmlsolver.EventTypeB,
			Assign: func(y []float64) []float64 { return []float64{y[0] * 2} },
		},
	}
	m := biomodel.New([]float64{1}, func(t float64, y, ydot []float64) { ydot[0] = 0 }, events)

	d := sbmlsolver.NewDriver()
	d.Configure(sbmlsolver.Options{AbsTol: 1e-10, RelTol: 1e-6, MaxSteps: 10000, FollowEvents: true})
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := d.Advance(0, 1.0); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if got := m.State()[0]; got != 4 {
		t.Fatalf("y(1) = %v, want 4 (add then multiply)", got)
	}
}

// TestAdvanceNonPersistentRetraction covers S5: a trigger that pulses
// true then false before its delay elapses must never apply.
func TestAdvanceNonPersistentRetraction(t *testing.T) {
	events := []biomodel.EventSpec{{
		Gap: func(t float64, y []float64) float64 {
			return math.Min(t-0.4, 0.45-t)
		},
		Delay:      0.2,
		Persistent: false,
		Type:       sbmlsolver.EventTypeB,
		Assign:     func(y []float64) []float64 { return []float64{y[0] + 100} },
	}}
	m := biomodel.New([]float64{1}, func(t float64, y, ydot []float64) { ydot[0] = 0 }, events)

	d := sbmlsolver.NewDriver()
	d.Configure(sbmlsolver.Options{AbsTol: 1e-10, RelTol: 1e-6, MaxSteps: 10000, FollowEvents: true})
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := d.Advance(0, 1.0); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if len(m.Fired) != 0 {
		t.Fatalf("non-persistent event applied %d times, want 0", len(m.Fired))
	}
	if got := m.State()[0]; got != 1 {
		t.Fatalf("y(1) = %v, want unchanged 1", got)
	}
}

// TestAdvanceChatterGuard covers S6: an oscillatory trigger must still
// let advance complete with a bounded number of firings.
func TestAdvanceChatterGuard(t *testing.T) {
	events := []biomodel.EventSpec{{
		Gap:        func(t float64, y []float64) float64 { return math.Sin(1000 * t) },
		Persistent: true,
		Type:       sbmlsolver.EventTypeB,
		Assign:     func(y []float64) []float64 { return append([]float64(nil), y...) },
	}}
	m := biomodel.New([]float64{0}, func(t float64, y, ydot []float64) { ydot[0] = 0 }, events)

	d := sbmlsolver.NewDriver()
	d.Configure(sbmlsolver.Options{AbsTol: 1e-10, RelTol: 1e-6, MaxSteps: 10000, FollowEvents: true})
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := d.Advance(0, 0.01); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if len(m.Fired) >= 10 {
		t.Fatalf("oscillatory trigger fired %d times, want fewer than 10", len(m.Fired))
	}
}

// TestAdvanceIdempotentReset covers property 8: reset followed by a
// zero-length advance is a no-op.
func TestAdvanceIdempotentReset(t *testing.T) {
	m := biomodel.New([]float64{3}, func(t float64, y, ydot []float64) { ydot[0] = 0 }, nil)

	d := sbmlsolver.NewDriver()
	d.Configure(sbmlsolver.Options{AbsTol: 1e-10, RelTol: 1e-6, MaxSteps: 10000, FollowEvents: true})
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := d.Reset(2.0); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	tReached, err := d.Advance(2.0, 0)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if tReached != 2.0 {
		t.Fatalf("tReached = %v, want 2.0", tReached)
	}
	if got := m.State()[0]; got != 3 {
		t.Fatalf("state mutated by a zero-length advance: got %v", got)
	}
}

// TestAdvanceFailureAllowsRetry covers §7's recovery policy: when the
// integrator exhausts its internal step budget, Advance returns an
// IntegratorFailure but leaves the driver re-initialized at the time
// it actually reached, so a later Advance call can retry from there.
func TestAdvanceFailureAllowsRetry(t *testing.T) {
	m := biomodel.New([]float64{1}, func(t float64, y, ydot []float64) {
		ydot[0] = -y[0]
	}, nil)

	d := sbmlsolver.NewDriver()
	d.Configure(sbmlsolver.Options{
		AbsTol: 1e-10, RelTol: 1e-6, InitStep: 0.001, MaxSteps: 3, FollowEvents: true,
	})
	if err := d.Initialize(m); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	tFailed, err := d.Advance(0, 1.0)
	if err == nil {
		t.Fatal("Advance should fail when internal steps exceed MaxSteps")
	}
	if _, ok := err.(*sbmlsolver.IntegratorFailure); !ok {
		t.Fatalf("err = %T, want *sbmlsolver.IntegratorFailure", err)
	}
	if tFailed <= 0 {
		t.Fatalf("tFailed = %v, want > 0 (partial progress before failing)", tFailed)
	}

	if _, err := d.Advance(tFailed, 0.001); err != nil {
		t.Fatalf("retry Advance after failure: %v", err)
	}
}

func TestInitializeRejectsNilModel(t *testing.T) {
	d := sbmlsolver.NewDriver()
	if err := d.Initialize(nil); err == nil {
		t.Fatal("Initialize(nil) should fail")
	}
}
