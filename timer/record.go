package timer

import "time"

// record is the engine-internal representation of a scheduled timer.
// Every concrete engine allocates records from a single
// growable slice keyed by Handle so that Handle values stay stable across
// reschedule/deactivate calls.
type record struct {
	handle Handle
	status Status
	fireAt time.Time
	period time.Duration
	action Action

	// wheel.go
	slot                 int
	fullRolls            int
	wheelPrev, wheelNext *record

	// list.go
	listPrev, listNext *record

	// heap.go
	heapIndex int
}

func (r *record) reset() {
	r.status = Inactive
	r.fireAt = time.Time{}
	r.period = 0
	r.action = nil
	r.slot = -1
	r.fullRolls = 0
	r.wheelPrev, r.wheelNext = nil, nil
	r.listPrev, r.listNext = nil, nil
	r.heapIndex = -1
}

// runDue invokes the action of every record in due unless it was flipped
// to PendingDeactivation while PendingExec, in which case the action is
// skipped. Panics are reported to sink.OnActionPanic and never propagate.
func runDue(due []*record, sink ErrorSink) {
	for _, r := range due {
		if r.status == PendingDeactivation {
			continue
		}
		invokeOne(r, sink)
	}
}

func invokeOne(r *record, sink ErrorSink) {
	defer func() {
		if rec := recover(); rec != nil {
			sink.OnActionPanic(r.handle, rec)
		}
	}()
	if r.action != nil {
		r.action()
	}
}

// advancer is implemented by every concrete engine in addition to Engine.
// It splits ProcessExpired into a collect phase (mutates the engine's
// structure, must run under the caller's lock) and a finish phase
// (reinserts periodic timers, also under the caller's lock) so that the
// safe/threaded mixins can release their mutex while actions run.
type advancer interface {
	Engine
	collectDue(now time.Time) []*record
	finishDue(now time.Time, due []*record)
}
