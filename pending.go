package sbmlsolver

import (
	"container/heap"
	"sort"
)

// PendingAssignment is a scheduled, not-yet-applied event assignment.
// It is immutable after construction; Values is nil for Type-B events,
// which recompute their assignment against the state at fire time.
type PendingAssignment struct {
	EventID  int
	FireTime float64
	Values   []float64

	seq uint64 // insertion order, used to drain newest-first
}

// fireTimeHeap is a min-heap of distinct fire times, grounded on the
// container/heap priority-queue idiom used for Dijkstra's algorithm
// elsewhere in the surrounding codebase.
type fireTimeHeap []float64

func (h fireTimeHeap) Len() int            { return len(h) }
func (h fireTimeHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h fireTimeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *fireTimeHeap) Push(x interface{}) { *h = append(*h, x.(float64)) }
func (h *fireTimeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// PendingAssignmentQueue is the delay-ordered schedule of event
// assignments awaiting application. Its time schedule (a min-heap of
// distinct fire times, kept set-like via a refcount) is separate from
// the independently tracked per-event entries, per the duplicate
// fire-time-insertion design note.
type PendingAssignmentQueue struct {
	entries []PendingAssignment
	times   fireTimeHeap
	refs    map[float64]int
	nextSeq uint64
}

// NewPendingAssignmentQueue returns an empty queue.
func NewPendingAssignmentQueue() *PendingAssignmentQueue {
	return &PendingAssignmentQueue{refs: make(map[float64]int)}
}

// Schedule appends a pending assignment and inserts fireTime into the
// time schedule if it is not already present there.
func (q *PendingAssignmentQueue) Schedule(eventID int, fireTime float64, values []float64) {
	q.entries = append(q.entries, PendingAssignment{
		EventID:  eventID,
		FireTime: fireTime,
		Values:   values,
		seq:      q.nextSeq,
	})
	q.nextSeq++
	if q.refs[fireTime] == 0 {
		heap.Push(&q.times, fireTime)
	}
	q.refs[fireTime]++
}

// NextFireTime returns the smallest scheduled fire time, if any.
func (q *PendingAssignmentQueue) NextFireTime() (float64, bool) {
	for len(q.times) > 0 {
		t := q.times[0]
		if q.refs[t] > 0 {
			return t, true
		}
		heap.Pop(&q.times) // stale entry left by a Drop/DueBy, discard lazily
	}
	return 0, false
}

// DueBy removes and returns every pending assignment whose fire time is
// <= t, in descending insertion order: a later Schedule call for the
// same instant wins over an earlier one when the drain pass applies them.
func (q *PendingAssignmentQueue) DueBy(t float64) []PendingAssignment {
	var due []PendingAssignment
	var remain []PendingAssignment
	for _, e := range q.entries {
		if e.FireTime <= t {
			due = append(due, e)
			q.release(e.FireTime)
		} else {
			remain = append(remain, e)
		}
	}
	q.entries = remain
	sort.Slice(due, func(i, j int) bool { return due[i].seq > due[j].seq })
	return due
}

// Drop removes every scheduled entry for eventID; used when a
// non-persistent trigger falls back to false before firing.
func (q *PendingAssignmentQueue) Drop(eventID int) {
	var remain []PendingAssignment
	for _, e := range q.entries {
		if e.EventID == eventID {
			q.release(e.FireTime)
			continue
		}
		remain = append(remain, e)
	}
	q.entries = remain
}

func (q *PendingAssignmentQueue) release(fireTime float64) {
	q.refs[fireTime]--
	if q.refs[fireTime] <= 0 {
		delete(q.refs, fireTime)
	}
}
