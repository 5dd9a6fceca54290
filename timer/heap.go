package timer

import (
	"container/heap"
	"time"
)

// DefaultHeapCapacity is the backing-array reservation used when a
// caller leaves the initial capacity unset.
const DefaultHeapCapacity = 64

// recordHeap implements container/heap.Interface over *record, ordered by
// fireAt. Each record remembers its own index so HeapEngine can call
// heap.Fix/heap.Remove in O(log n) without a linear search.
type recordHeap []*record

func (h recordHeap) Len() int { return len(h) }
func (h recordHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		// Equal fire times break ties by allocation order.
		return h[i].handle < h[j].handle
	}
	return h[i].fireAt.Before(h[j].fireAt)
}
func (h recordHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *recordHeap) Push(x any) {
	r := x.(*record) //nolint:forcetypeassert // recordHeap only ever stores *record
	r.heapIndex = len(*h)
	*h = append(*h, r)
}
func (h *recordHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.heapIndex = -1
	*h = old[:n-1]
	return r
}

// HeapEngine is an array-backed binary min-heap keyed by fire time. It
// is suited to workloads with very diverse pauses,
// where the wheel's fixed granularity would waste slots.
type HeapEngine struct {
	h       recordHeap
	records []*record
	sink    ErrorSink
	clock   Clock
}

// NewHeapEngine builds a HeapEngine, reserving initialCapacity slots up
// front (default DefaultHeapCapacity).
func NewHeapEngine(initialCapacity int, clock Clock, sink ErrorSink) *HeapEngine {
	if initialCapacity <= 0 {
		initialCapacity = DefaultHeapCapacity
	}
	if sink == nil {
		sink = NewNoopErrorSink()
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &HeapEngine{
		h:     make(recordHeap, 0, initialCapacity),
		sink:  sink,
		clock: clock,
	}
}

func (e *HeapEngine) Allocate() Handle {
	r := &record{status: Inactive, heapIndex: -1}
	e.records = append(e.records, r)
	h := Handle(len(e.records) - 1)
	r.handle = h
	return h
}

func (e *HeapEngine) get(h Handle) (*record, error) {
	if int(h) < 0 || int(h) >= len(e.records) {
		return nil, ErrUnknownHandle
	}
	return e.records[h], nil
}

func (e *HeapEngine) isNearest(r *record) bool {
	return len(e.h) > 0 && e.h[0] == r
}

func (e *HeapEngine) Activate(hdl Handle, pause, period time.Duration, action Action) (bool, error) {
	r, err := e.get(hdl)
	if err != nil {
		return false, err
	}
	if r.status != Inactive {
		return false, wrapNotDeactivated(r.status)
	}
	r.fireAt = e.clock.Now().Add(pause)
	r.period = period
	r.action = action
	r.status = Active
	heap.Push(&e.h, r)
	return e.isNearest(r), nil
}

func (e *HeapEngine) Reschedule(hdl Handle, pause, period time.Duration, action Action) (bool, error) {
	r, err := e.get(hdl)
	if err != nil {
		return false, err
	}
	switch r.status {
	case PendingExec, PendingDeactivation:
		return false, wrapInProcessing(r.status)
	case Active:
		heap.Remove(&e.h, r.heapIndex)
		r.status = Inactive
	}
	r.fireAt = e.clock.Now().Add(pause)
	r.period = period
	r.action = action
	r.status = Active
	heap.Push(&e.h, r)
	return e.isNearest(r), nil
}

func (e *HeapEngine) Deactivate(hdl Handle) error {
	r, err := e.get(hdl)
	if err != nil {
		return err
	}
	switch r.status {
	case Active:
		heap.Remove(&e.h, r.heapIndex)
		r.status = Inactive
	case PendingExec:
		r.status = PendingDeactivation
	}
	return nil
}

func (e *HeapEngine) collectDue(now time.Time) []*record {
	var due []*record
	for len(e.h) > 0 && !e.h[0].fireAt.After(now) {
		r := heap.Pop(&e.h).(*record) //nolint:forcetypeassert // recordHeap only ever stores *record
		r.status = PendingExec
		due = append(due, r)
	}
	return due
}

func (e *HeapEngine) finishDue(now time.Time, due []*record) {
	for _, r := range due {
		switch r.status {
		case PendingDeactivation:
			r.status = Inactive
		case PendingExec:
			if r.period > 0 {
				r.fireAt = now.Add(r.period)
				r.status = Active
				heap.Push(&e.h, r)
			} else {
				r.status = Inactive
			}
		}
	}
}

func (e *HeapEngine) ProcessExpired(now time.Time) {
	due := e.collectDue(now)
	runDue(due, e.sink)
	e.finishDue(now, due)
}

func (e *HeapEngine) Empty() bool { return len(e.h) == 0 }

func (e *HeapEngine) NearestFireTime() (time.Time, bool) {
	if len(e.h) == 0 {
		return time.Time{}, false
	}
	return e.h[0].fireAt, true
}

func (e *HeapEngine) ClearAll() {
	e.h = e.h[:0]
	for _, r := range e.records {
		r.reset()
	}
}

var _ advancer = (*HeapEngine)(nil)

// Sink returns the engine's configured ErrorSink.
func (e *HeapEngine) Sink() ErrorSink { return e.sink }
