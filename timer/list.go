package timer

import "time"

// ListEngine is a doubly-linked list of timers sorted by fire time.
// Insert walks from the tail, which favours workloads
// where most timers share cadence (new timers tend to land after existing
// ones).
type ListEngine struct {
	head, tail *record
	records    []*record
	sink       ErrorSink
	clock      Clock
}

// NewListEngine builds an empty ListEngine.
func NewListEngine(clock Clock, sink ErrorSink) *ListEngine {
	if sink == nil {
		sink = NewNoopErrorSink()
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &ListEngine{sink: sink, clock: clock}
}

func (l *ListEngine) Allocate() Handle {
	r := &record{status: Inactive}
	l.records = append(l.records, r)
	h := Handle(len(l.records) - 1)
	r.handle = h
	return h
}

func (l *ListEngine) get(h Handle) (*record, error) {
	if int(h) < 0 || int(h) >= len(l.records) {
		return nil, ErrUnknownHandle
	}
	return l.records[h], nil
}

// insert walks backward from the tail looking for the first record whose
// fireAt is <= r.fireAt, and splices r immediately after it. Ties keep
// FIFO insertion order because a record inserted later with an equal
// fireAt walks past all equal-valued predecessors before stopping.
func (l *ListEngine) insert(r *record) {
	if l.tail == nil {
		l.head, l.tail = r, r
		r.listPrev, r.listNext = nil, nil
		return
	}
	cur := l.tail
	for cur != nil && cur.fireAt.After(r.fireAt) {
		cur = cur.listPrev
	}
	if cur == nil {
		// r fires before everything: splice at head.
		r.listNext = l.head
		r.listPrev = nil
		l.head.listPrev = r
		l.head = r
		return
	}
	r.listNext = cur.listNext
	r.listPrev = cur
	if cur.listNext != nil {
		cur.listNext.listPrev = r
	} else {
		l.tail = r
	}
	cur.listNext = r
}

func (l *ListEngine) remove(r *record) {
	if r.listPrev != nil {
		r.listPrev.listNext = r.listNext
	} else if l.head == r {
		l.head = r.listNext
	}
	if r.listNext != nil {
		r.listNext.listPrev = r.listPrev
	} else if l.tail == r {
		l.tail = r.listPrev
	}
	r.listPrev, r.listNext = nil, nil
}

func (l *ListEngine) isNearest(r *record) bool {
	return l.head == r
}

func (l *ListEngine) Activate(h Handle, pause, period time.Duration, action Action) (bool, error) {
	r, err := l.get(h)
	if err != nil {
		return false, err
	}
	if r.status != Inactive {
		return false, wrapNotDeactivated(r.status)
	}
	r.fireAt = l.clock.Now().Add(pause)
	r.period = period
	r.action = action
	r.status = Active
	l.insert(r)
	return l.isNearest(r), nil
}

func (l *ListEngine) Reschedule(h Handle, pause, period time.Duration, action Action) (bool, error) {
	r, err := l.get(h)
	if err != nil {
		return false, err
	}
	switch r.status {
	case PendingExec, PendingDeactivation:
		return false, wrapInProcessing(r.status)
	case Active:
		l.remove(r)
		r.status = Inactive
	}
	r.fireAt = l.clock.Now().Add(pause)
	r.period = period
	r.action = action
	r.status = Active
	l.insert(r)
	return l.isNearest(r), nil
}

func (l *ListEngine) Deactivate(h Handle) error {
	r, err := l.get(h)
	if err != nil {
		return err
	}
	switch r.status {
	case Active:
		l.remove(r)
		r.status = Inactive
	case PendingExec:
		r.status = PendingDeactivation
	}
	return nil
}

func (l *ListEngine) collectDue(now time.Time) []*record {
	var due []*record
	for l.head != nil && !l.head.fireAt.After(now) {
		r := l.head
		l.remove(r)
		r.status = PendingExec
		due = append(due, r)
	}
	return due
}

func (l *ListEngine) finishDue(now time.Time, due []*record) {
	for _, r := range due {
		switch r.status {
		case PendingDeactivation:
			r.status = Inactive
		case PendingExec:
			if r.period > 0 {
				r.fireAt = now.Add(r.period)
				r.status = Active
				l.insert(r)
			} else {
				r.status = Inactive
			}
		}
	}
}

func (l *ListEngine) ProcessExpired(now time.Time) {
	due := l.collectDue(now)
	runDue(due, l.sink)
	l.finishDue(now, due)
}

func (l *ListEngine) Empty() bool { return l.head == nil }

func (l *ListEngine) NearestFireTime() (time.Time, bool) {
	if l.head == nil {
		return time.Time{}, false
	}
	return l.head.fireAt, true
}

func (l *ListEngine) ClearAll() {
	l.head, l.tail = nil, nil
	for _, r := range l.records {
		r.reset()
	}
}

var _ advancer = (*ListEngine)(nil)

// Sink returns the engine's configured ErrorSink.
func (l *ListEngine) Sink() ErrorSink { return l.sink }
