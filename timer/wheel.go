package timer

import "time"

// DefaultWheelSize and DefaultGranularity are the wheel tunables used
// when a caller leaves them unset.
const (
	DefaultWheelSize   = 1000
	DefaultGranularity = 10 * time.Millisecond
)

// wheelSlot is a doubly-linked list of records sharing a tick, ordered
// oldest-activated-first so same-slot firing preserves FIFO order.
type wheelSlot struct {
	head *record
	tail *record
}

// WheelEngine is a fixed-size hashed timing wheel. It is suited to many
// similar short timers: insertion and removal are O(1),
// independent of how many timers are scheduled.
type WheelEngine struct {
	size        int
	granularity time.Duration
	slots       []wheelSlot
	current     int // index of the slot representing "now"
	lastTick    time.Time
	records     []*record
	sink        ErrorSink
	clock       Clock
}

// NewWheelEngine builds a WheelEngine with size slots, each representing
// granularity of wall-clock time. size and granularity fall back to
// DefaultWheelSize/DefaultGranularity when non-positive.
func NewWheelEngine(size int, granularity time.Duration, clock Clock, sink ErrorSink) *WheelEngine {
	if size <= 0 {
		size = DefaultWheelSize
	}
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	if sink == nil {
		sink = NewNoopErrorSink()
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &WheelEngine{
		size:        size,
		granularity: granularity,
		slots:       make([]wheelSlot, size),
		lastTick:    clock.Now(),
		sink:        sink,
		clock:       clock,
	}
}

func (w *WheelEngine) Allocate() Handle {
	r := &record{status: Inactive, slot: -1}
	w.records = append(w.records, r)
	h := Handle(len(w.records) - 1)
	r.handle = h
	return h
}

func (w *WheelEngine) get(h Handle) (*record, error) {
	if int(h) < 0 || int(h) >= len(w.records) {
		return nil, ErrUnknownHandle
	}
	return w.records[h], nil
}

// ticksFor converts a pause into a tick count as (pause + G/2) / G with a
// minimum of one tick. A zero or negative pause schedules into the very
// next tick rather than being rejected.
func (w *WheelEngine) ticksFor(pause time.Duration) int {
	if pause <= 0 {
		return 1
	}
	ticks := int((pause + w.granularity/2) / w.granularity)
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

func (w *WheelEngine) insert(r *record, pause time.Duration) {
	ticks := w.ticksFor(pause)
	slotIdx := (w.current + ticks) % w.size
	r.slot = slotIdx
	r.fullRolls = ticks / w.size
	r.fireAt = w.lastTick.Add(time.Duration(ticks) * w.granularity)

	slot := &w.slots[slotIdx]
	r.wheelNext = nil
	r.wheelPrev = slot.tail
	if slot.tail != nil {
		slot.tail.wheelNext = r
	} else {
		slot.head = r
	}
	slot.tail = r
	r.status = Active
}

func (w *WheelEngine) remove(r *record) {
	if r.slot < 0 {
		return
	}
	slot := &w.slots[r.slot]
	if r.wheelPrev != nil {
		r.wheelPrev.wheelNext = r.wheelNext
	} else {
		slot.head = r.wheelNext
	}
	if r.wheelNext != nil {
		r.wheelNext.wheelPrev = r.wheelPrev
	} else {
		slot.tail = r.wheelPrev
	}
	r.wheelPrev, r.wheelNext = nil, nil
	r.slot = -1
}

func (w *WheelEngine) isNearest(r *record) bool {
	nearest, ok := w.NearestFireTime()
	return ok && !r.fireAt.After(nearest)
}

func (w *WheelEngine) Activate(h Handle, pause, period time.Duration, action Action) (bool, error) {
	r, err := w.get(h)
	if err != nil {
		return false, err
	}
	if r.status != Inactive {
		return false, wrapNotDeactivated(r.status)
	}
	r.period = period
	r.action = action
	w.insert(r, pause)
	return w.isNearest(r), nil
}

func (w *WheelEngine) Reschedule(h Handle, pause, period time.Duration, action Action) (bool, error) {
	r, err := w.get(h)
	if err != nil {
		return false, err
	}
	switch r.status {
	case PendingExec, PendingDeactivation:
		return false, wrapInProcessing(r.status)
	case Active:
		w.remove(r)
		r.status = Inactive
	}
	r.period = period
	r.action = action
	w.insert(r, pause)
	return w.isNearest(r), nil
}

func (w *WheelEngine) Deactivate(h Handle) error {
	r, err := w.get(h)
	if err != nil {
		return err
	}
	switch r.status {
	case Active:
		w.remove(r)
		r.status = Inactive
	case PendingExec:
		r.status = PendingDeactivation
	}
	return nil
}

// collectDue advances the wheel by as many ticks as needed to reach now,
// walking every intermediate slot so empty ticks still advance the wheel.
func (w *WheelEngine) collectDue(now time.Time) []*record {
	if w.lastTick.IsZero() {
		w.lastTick = now
	}
	var due []*record
	for !now.Before(w.lastTick.Add(w.granularity)) {
		w.lastTick = w.lastTick.Add(w.granularity)
		w.current = (w.current + 1) % w.size
		slot := &w.slots[w.current]

		var remainHead, remainTail *record
		for r := slot.head; r != nil; {
			next := r.wheelNext
			if r.fullRolls > 0 {
				r.fullRolls--
				r.wheelPrev, r.wheelNext = remainTail, nil
				if remainTail == nil {
					remainHead = r
				} else {
					remainTail.wheelNext = r
				}
				remainTail = r
				r = next
				continue
			}
			r.wheelPrev, r.wheelNext = nil, nil
			r.status = PendingExec
			due = append(due, r)
			r = next
		}
		slot.head, slot.tail = remainHead, remainTail
		for p := remainHead; p != nil; p = p.wheelNext {
			p.slot = w.current
		}
	}
	return due
}

func (w *WheelEngine) finishDue(now time.Time, due []*record) {
	for _, r := range due {
		switch r.status {
		case PendingDeactivation:
			r.status = Inactive
		case PendingExec:
			if r.period > 0 {
				r.status = Inactive
				w.insert(r, r.period)
			} else {
				r.status = Inactive
			}
		}
	}
}

func (w *WheelEngine) ProcessExpired(now time.Time) {
	due := w.collectDue(now)
	runDue(due, w.sink)
	w.finishDue(now, due)
}

func (w *WheelEngine) Empty() bool {
	for i := range w.slots {
		if w.slots[i].head != nil {
			return false
		}
	}
	return true
}

func (w *WheelEngine) NearestFireTime() (time.Time, bool) {
	var nearest time.Time
	found := false
	for i := range w.slots {
		for r := w.slots[i].head; r != nil; r = r.wheelNext {
			if !found || r.fireAt.Before(nearest) {
				nearest = r.fireAt
				found = true
			}
		}
	}
	return nearest, found
}

func (w *WheelEngine) ClearAll() {
	for i := range w.slots {
		w.slots[i].head, w.slots[i].tail = nil, nil
	}
	for _, r := range w.records {
		r.reset()
	}
}

var _ advancer = (*WheelEngine)(nil)

// Sink returns the engine's configured ErrorSink.
func (w *WheelEngine) Sink() ErrorSink { return w.sink }
