package sbmlsolver

import (
	"math"
	"sync/atomic"

	kitlog "github.com/go-kit/kit/log"

	"github.com/Tubbz-alt/sbmlsolver/integrator"
)

// Options configures a Driver: tolerances, solver limits and whether
// discrete events are followed at all. Every field has the default
// from the external interface table; the zero value of Options is not
// itself a usable configuration (AbsTol/RelTol need a caller-supplied
// value), so always start from DefaultOptions.
type Options struct {
	AbsTol        float64
	RelTol        float64
	MaxBDFOrder   int
	MaxAdamsOrder int
	MaxSteps      int
	InitStep      float64
	MinStep       float64
	MaxStep       float64
	FollowEvents  bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxBDFOrder:   5,
		MaxAdamsOrder: 12,
		MaxSteps:      10000,
		FollowEvents:  true,
	}
}

// Driver advances a Model through time, interleaving the stiff
// integrator with discrete event handling. A Driver is not safe for
// concurrent use: Advance runs to completion before any other method
// may be called.
type Driver struct {
	model Model
	integ integrator.Integrator
	rh    *RootHandler
	queue *PendingAssignmentQueue

	y    StateVector
	ydot []float64
	tol  ToleranceVector
	n    int
	e    int

	opts   Options
	logger kitlog.Logger
}

// driverSeq assigns each Driver a distinct id for log tagging, the
// numeric stand-in for the caller-supplied name the teacher tags its
// per-estimate logger with.
var driverSeq int64

// NewDriver returns an unconfigured Driver using DefaultOptions and a
// logfmt-to-stdout logger tagged with this instance's id, mirroring
// the teacher's default mission logger construction.
func NewDriver() *Driver {
	id := int(atomic.AddInt64(&driverSeq, 1))
	return &Driver{opts: DefaultOptions(), logger: withDriver(newLogger(), id)}
}

// Configure overwrites the Driver's Options; call before Initialize.
func (d *Driver) Configure(opts Options) {
	d.opts = opts
}

// SetTolerances overrides the absolute and relative tolerance from
// Options.
func (d *Driver) SetTolerances(abs, rel float64) {
	d.opts.AbsTol = abs
	d.opts.RelTol = rel
}

// SetFollowEvents toggles whether RootHit results are handled at all;
// false makes the Driver ignore every trigger and integrate straight
// through roots.
func (d *Driver) SetFollowEvents(follow bool) {
	d.opts.FollowEvents = follow
}

// Initialize allocates the Driver's state and tolerance vectors from
// model, configures the integrator, and resets the model's event
// bookkeeping, per §4.5.
func (d *Driver) Initialize(model Model) error {
	if model == nil {
		return newInitializationFailure("model is nil")
	}
	d.model = model
	n := model.StateSize()
	e := model.NumEvents()
	if n < 0 || e < 0 {
		return newInitializationFailure("model reports a negative state size or event count")
	}
	d.n, d.e = n, e

	size := n
	if size == 0 && e > 0 {
		size = 1
	}
	d.y = newStateVector(size)
	d.ydot = make([]float64, size)
	d.tol = newToleranceVector(size, d.opts.AbsTol)

	if n > 0 {
		model.GetState(d.y)
		d.tol.tighten(d.y, d.opts.AbsTol)
	} else if size > 0 {
		d.y[0] = 1
	}

	d.queue = NewPendingAssignmentQueue()

	integ := integrator.New(size)
	derivs := func(t float64, y, ydot []float64) {
		if n == 0 {
			ydot[0] = 0
			return
		}
		model.EvalDerivatives(t, y, ydot)
	}
	iOpts := integrator.Options{
		MaxOrder: d.opts.MaxBDFOrder,
		InitStep: d.opts.InitStep,
		MinStep:  d.opts.MinStep,
		MaxStep:  d.opts.MaxStep,
		MaxSteps: d.opts.MaxSteps,
	}
	if err := integ.Init(0, d.y, d.opts.RelTol, d.tol, derivs, iOpts); err != nil {
		return newInitializationFailure("integrator init: %v", err)
	}
	if e > 0 {
		rootFn := func(t float64, y []float64, out []float64) {
			model.SetState(y)
			model.EvalEvents(t, y)
			model.EventTriggerGaps(out)
		}
		integ.RootInit(e, rootFn)
	}
	d.integ = integ
	d.rh = NewRootHandler(model, d.queue, integ, d.logger)
	model.ResetEvents()

	if e > 0 {
		d.handleInitialEvents()
	}
	return nil
}

// handleInitialEvents implements §4.4.2: triggers already true against
// the initial state fire once, at t=0, before any integration happens.
func (d *Driver) handleInitialEvents() {
	newlyTrue := d.rh.RetestAtStart(d.y)
	if len(newlyTrue) == 0 {
		return
	}
	rootInfo := make([]int, d.e)
	for _, i := range newlyTrue {
		rootInfo[i] = 1
	}
	_ = d.rh.Handle(0, d.y, rootInfo)
}

// Reset reinitializes the integrator at t against the model's current
// state, without touching event bookkeeping.
func (d *Driver) Reset(t float64) error {
	if d.model == nil {
		return newInitializationFailure("driver not initialized")
	}
	return d.reStart(t)
}

// Close releases the Driver's solver memory and collaborator
// reference. It is the idiomatic stand-in for Driver destruction: safe
// to call multiple times, and safe to call after a failed Initialize.
func (d *Driver) Close() {
	d.model = nil
	d.integ = nil
	d.rh = nil
	d.queue = nil
	d.y = nil
	d.ydot = nil
	d.tol = nil
}

// reStart reads the model's current state into the Driver's
// StateVector and reinitializes the integrator there.
func (d *Driver) reStart(t float64) error {
	d.model.GetState(d.y)
	return d.integ.Reinit(t, d.y)
}

// Advance integrates from t0 through t0+h, firing and cascading events
// along the way, and returns the time actually reached (always t0+h
// unless h collapses below the driver's smallest representable step).
// This is the main loop described in §4.5.
func (d *Driver) Advance(t0, h float64) (tReached float64, err error) {
	tEnd := t0 + h
	timeStart := t0
	tReached = t0
	lastTime := math.Inf(-1)
	lastEventTime := math.NaN()
	strikes := 3

	yNormInit := norm(d.y)
	defer func() {
		yNormFinal := norm(d.y)
		d.logger.Log("level", "debug", "subsys", "driver", "status", "finished",
			"t", tReached, "Δ|y|", math.Abs(yNormFinal-yNormInit), "dir", sign(yNormFinal-yNormInit))
	}()

	for tEnd-tReached > 1e-16 {
		if h < 1e-16 {
			return tEnd, nil
		}
		if d.n == 0 && d.e == 0 {
			d.model.ConvertToAmounts()
			d.model.EvalDerivatives(tEnd, d.y, d.ydot)
			return tEnd, nil
		}
		if lastTime > timeStart {
			if err := d.reStart(timeStart); err != nil {
				return tReached, err
			}
		}

		nextTarget := tEnd
		if nft, ok := d.queue.NextFireTime(); ok && nft < nextTarget {
			nextTarget = nft
		}

		reached, outcome := d.integ.Step(nextTarget)
		tReached = reached
		d.integ.State(d.y)

		switch outcome.Result {
		case integrator.RootHit:
			if !d.opts.FollowEvents {
				d.model.SetState(d.y)
				break
			}
			chatter := !math.IsNaN(lastEventTime) && closeWithin(tReached, lastEventTime, d.opts.RelTol)
			if chatter {
				strikes--
			} else {
				strikes = 3
			}
			if !chatter || strikes > 0 {
				rootInfo := d.integ.RootInfo()
				if err := d.rh.Handle(tReached, d.y, rootInfo); err != nil {
					return tReached, err
				}
				if err := d.reStart(tReached); err != nil {
					return tReached, err
				}
				lastEventTime = tReached
			} else {
				d.logger.Log("level", "debug", "subsys", "events", "chatter", "suppressed", "t", tReached)
				d.model.SetState(d.y)
			}
		case integrator.Converged:
			d.model.SetState(d.y)
		case integrator.Failed:
			// Re-initialize internally before re-raising, per the
			// original driver's initializeCVODEInterface-then-throw
			// recovery policy: a later Advance call can retry from
			// the last state the model actually reached.
			d.model.SetState(d.y)
			if rerr := d.reStart(tReached); rerr != nil {
				d.logger.Log("level", "warn", "subsys", "integrator", "t", tReached, "err", rerr)
			}
			return tReached, newIntegratorFailure(outcome.Code, "BDF step failed")
		}

		if err := d.model.TestConstraints(); err != nil {
			d.logger.Log("level", "warn", "subsys", "constraints", "t", tReached, "err", err)
		}

		if err := d.drainPendingAssignments(tReached, tEnd); err != nil {
			return tReached, err
		}

		if tEnd-tReached > 1e-16 {
			timeStart = tReached
		}
		lastTime = tReached
	}
	return tReached, nil
}

// drainPendingAssignments implements §4.6: apply every assignment
// scheduled at or before tReached, newest scheduling first.
func (d *Driver) drainPendingAssignments(tReached, tEnd float64) error {
	due := d.queue.DueBy(tReached)
	for _, pa := range due {
		d.model.SetState(d.y)
		d.model.ConvertToConcentrations()
		d.model.UpdateDependentSpecies()
		d.model.PerformEventAssignment(pa.EventID, pa.Values)
		if d.model.ConservedTotalsChanged() {
			d.model.ComputeConservedTotals()
		}
		d.model.ConvertToAmounts()
		d.model.EvalDerivatives(tReached, d.y, d.ydot)
		if err := d.reStart(tReached); err != nil {
			return err
		}
	}
	return nil
}
