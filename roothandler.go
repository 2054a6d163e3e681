package sbmlsolver

import (
	"math"
	"sort"

	kitlog "github.com/go-kit/kit/log"
)

// reinitializer is the slice of the Integrator contract the RootHandler
// needs: restarting solver history at a new (t, y) after a discrete state
// change. Kept as a narrow, locally-declared interface (rather than an
// import of the integrator package) so the RootHandler stays solver
// agnostic, per the callback-plumbing design note.
type reinitializer interface {
	Reinit(t float64, y []float64) error
}

// RootHandler resolves a set of just-transitioned triggers into fired
// events, delayed assignments and cascaded retransitions, per §4.4.
type RootHandler struct {
	model Model
	queue *PendingAssignmentQueue
	integ reinitializer
	log   kitlog.Logger

	y, ydot []float64 // scratch, sized StateSize()
}

// NewRootHandler returns a RootHandler wired to model, queue and the
// integrator to reinit once handling completes.
func NewRootHandler(model Model, queue *PendingAssignmentQueue, integ reinitializer, logger kitlog.Logger) *RootHandler {
	n := model.StateSize()
	return &RootHandler{
		model: model,
		queue: queue,
		integ: integ,
		log:   logger,
		y:     make([]float64, n),
		ydot:  make([]float64, n),
	}
}

// candidate is a firing candidate: the event id and its Type-A
// precomputed assignment values (nil for Type-B, which recomputes
// against current state when applied).
type candidate struct {
	eventID int
	values  []float64
}

// Handle implements §4.4: given the roots that just transitioned
// (rootInfo, one of -1/0/+1 per event, in the integrator's getRootInfo
// convention) and the integrator's state y at tRoot, it fires, delays,
// and cascades events, then hands the post-assignment state back to y
// and reinitializes the integrator at tRoot.
func (rh *RootHandler) Handle(tRoot float64, y []float64, rootInfo []int) error {
	rh.model.SetState(y)
	rh.model.ConvertToConcentrations()
	rh.model.UpdateDependentSpecies()
	rh.model.EvalEvents(tRoot, y)

	var candidates []candidate
	for i := 0; i < rh.model.NumEvents(); i++ {
		if rootInfo[i] == 1 {
			if rh.model.EventStatus(i) {
				candidates = append(candidates, rh.newCandidate(i))
			}
		} else if !rh.model.EventPersistent(i) {
			rh.queue.Drop(i)
		}
	}

	handled := make(map[int]bool)
	for len(candidates) > 0 {
		sortCandidates(candidates, rh.model)
		cur := candidates[0]
		candidates = candidates[1:]

		delay := rh.model.EventDelay(cur.eventID)
		if delay <= 0 {
			rh.model.PerformEventAssignment(cur.eventID, cur.values)
			rh.model.SetEventStatus(cur.eventID, false)
			handled[cur.eventID] = true
			if rh.log != nil {
				rh.log.Log("level", "debug", "subsys", "events", "fired", cur.eventID, "t", tRoot)
			}

			newlyTrue, newlyFalseNonPersistent := rh.retest(tRoot, handled, PopDiscard)
			for _, j := range newlyTrue {
				candidates = append(candidates, rh.newCandidate(j))
			}
			candidates = dropEventIDs(candidates, newlyFalseNonPersistent)
			for _, j := range newlyFalseNonPersistent {
				rh.queue.Drop(j)
			}
		} else {
			rh.queue.Schedule(cur.eventID, tRoot+delay, cur.values)
			rh.model.SetEventStatus(cur.eventID, false)
		}
	}

	if rh.model.ConservedTotalsChanged() {
		rh.model.ComputeConservedTotals()
	}
	rh.model.ConvertToAmounts()
	rh.model.EvalDerivatives(tRoot, y, rh.ydot)
	rh.model.GetState(y)
	return rh.integ.Reinit(tRoot, y)
}

// RetestAtStart implements §4.4.2: at t=0, retest whether any trigger is
// already true against the initial state, treating the whole event set
// as candidates for Handle if so. The retest here commits its probe
// (PopKeep) since it is evaluating the real initial state, not a
// what-if.
func (rh *RootHandler) RetestAtStart(y []float64) []int {
	rh.model.SetState(y)
	newlyTrue, _ := rh.retest(0, nil, PopKeep)
	return newlyTrue
}

func (rh *RootHandler) newCandidate(eventID int) candidate {
	var values []float64
	if rh.model.EventType(eventID) == EventTypeA {
		values = rh.model.ComputeEventAssignment(eventID)
	}
	return candidate{eventID: eventID, values: values}
}

// retest implements §4.4.1: probe whether events transitioned since the
// last EvalEvents without committing to it (unless mode is PopKeep).
func (rh *RootHandler) retest(tRoot float64, alreadyHandled map[int]bool, mode PopMode) (newlyTrue, newlyFalseNonPersistent []int) {
	n := rh.model.NumEvents()
	before := make([]bool, n)
	for i := 0; i < n; i++ {
		before[i] = rh.model.EventStatus(i)
	}

	rh.model.PushState()
	rh.model.ConvertToAmounts()
	rh.model.GetState(rh.y)
	rh.model.EvalDerivatives(tRoot, rh.y, rh.ydot)
	rh.model.EvalEvents(tRoot, rh.y)

	for i := 0; i < n; i++ {
		after := rh.model.EventStatus(i)
		if after && !before[i] && !alreadyHandled[i] {
			newlyTrue = append(newlyTrue, i)
		}
		if !after && before[i] && !rh.model.EventPersistent(i) {
			newlyFalseNonPersistent = append(newlyFalseNonPersistent, i)
		}
	}

	rh.model.PopState(mode)
	return
}

// sortCandidates orders by descending priority; NaN priorities sort
// after every numeric priority and, among themselves, are ordered by
// ascending event id, same as any other priority tie. This is the
// deterministic-simultaneity rule from §4.4.3a.
func sortCandidates(cs []candidate, model Model) {
	sort.SliceStable(cs, func(i, j int) bool {
		pi, pj := model.EventPriority(cs[i].eventID), model.EventPriority(cs[j].eventID)
		iNaN, jNaN := math.IsNaN(pi), math.IsNaN(pj)
		switch {
		case iNaN && jNaN:
			return cs[i].eventID < cs[j].eventID
		case iNaN:
			return false
		case jNaN:
			return true
		case pi != pj:
			return pi > pj
		default:
			return cs[i].eventID < cs[j].eventID
		}
	})
}

func dropEventIDs(cs []candidate, drop []int) []candidate {
	if len(drop) == 0 {
		return cs
	}
	skip := make(map[int]bool, len(drop))
	for _, id := range drop {
		skip[id] = true
	}
	kept := cs[:0]
	for _, c := range cs {
		if !skip[c.eventID] {
			kept = append(kept, c)
		}
	}
	return kept
}
