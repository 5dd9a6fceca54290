package timer

import (
	"sync"
	"time"
)

// SafeEngine wraps any advancer with a mutex, making it safe for
// concurrent callers. Unlike calling the inner engine's ProcessExpired
// directly under a caller-held lock, SafeEngine.ProcessExpired releases
// the mutex while due actions run, so actions may re-enter the engine.
type SafeEngine struct {
	mu    sync.Mutex
	inner advancer
}

// NewSafeEngine wraps inner.
func NewSafeEngine(inner advancer) *SafeEngine {
	return &SafeEngine{inner: inner}
}

func (s *SafeEngine) Allocate() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Allocate()
}

func (s *SafeEngine) Activate(h Handle, pause, period time.Duration, action Action) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Activate(h, pause, period, action)
}

func (s *SafeEngine) Reschedule(h Handle, pause, period time.Duration, action Action) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Reschedule(h, pause, period, action)
}

func (s *SafeEngine) Deactivate(h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Deactivate(h)
}

// ProcessExpired runs one advance pass, releasing the mutex while due
// actions execute.
func (s *SafeEngine) ProcessExpired(now time.Time) {
	s.mu.Lock()
	due := s.inner.collectDue(now)
	s.mu.Unlock()

	runDue(due, s.sink())

	s.mu.Lock()
	s.inner.finishDue(now, due)
	s.mu.Unlock()
}

func (s *SafeEngine) sink() ErrorSink {
	if sinked, ok := s.inner.(interface{ Sink() ErrorSink }); ok {
		return sinked.Sink()
	}
	return NewNoopErrorSink()
}

func (s *SafeEngine) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Empty()
}

func (s *SafeEngine) NearestFireTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.NearestFireTime()
}

func (s *SafeEngine) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.ClearAll()
}

var _ Engine = (*SafeEngine)(nil)

// ThreadedEngine adds a dedicated worker goroutine on top of SafeEngine:
// it sleeps until the nearest fire time or a producer Notify, then calls
// ProcessExpired. The wake-up path is a buffered(1) channel so notifies
// coalesce instead of queueing.
type ThreadedEngine struct {
	*SafeEngine
	clock  ThreadClock
	wake   chan struct{}
	done   chan struct{}
	closed sync.Once
	wg     sync.WaitGroup
}

// ThreadClock is the time source a ThreadedEngine's worker goroutine
// needs: Now plus a cancellable timer. sobj.Clock satisfies this
// interface.
type ThreadClock interface {
	Now() time.Time
	NewTimer(d time.Duration) (<-chan time.Time, func() bool)
}

type systemThreadClock struct{ systemClock }

func (systemThreadClock) NewTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// NewThreadedEngine starts a worker goroutine advancing inner on its own
// schedule. Call Stop to shut the worker down.
func NewThreadedEngine(inner advancer, clock ThreadClock) *ThreadedEngine {
	if clock == nil {
		clock = systemThreadClock{}
	}
	t := &ThreadedEngine{
		SafeEngine: NewSafeEngine(inner),
		clock:      clock,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// Notify wakes the worker so it re-evaluates its sleep duration — call
// this after scheduling or rescheduling a timer that might now be
// nearest.
func (t *ThreadedEngine) Notify() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Activate shadows SafeEngine.Activate to wake the worker whenever the
// newly inserted timer becomes the nearest one.
func (t *ThreadedEngine) Activate(h Handle, pause, period time.Duration, action Action) (bool, error) {
	becameNearest, err := t.SafeEngine.Activate(h, pause, period, action)
	if becameNearest {
		t.Notify()
	}
	return becameNearest, err
}

// Reschedule shadows SafeEngine.Reschedule for the same reason as Activate.
func (t *ThreadedEngine) Reschedule(h Handle, pause, period time.Duration, action Action) (bool, error) {
	becameNearest, err := t.SafeEngine.Reschedule(h, pause, period, action)
	if becameNearest {
		t.Notify()
	}
	return becameNearest, err
}

// Stop shuts the worker thread down. Safe to call more than once.
func (t *ThreadedEngine) Stop() {
	t.closed.Do(func() { close(t.done) })
	t.wg.Wait()
}

func (t *ThreadedEngine) run() {
	defer t.wg.Done()
	for {
		sleep := t.nextSleep()

		timerCh, stop := t.clock.NewTimer(sleep)
		select {
		case <-t.done:
			stop()
			return
		case <-t.wake:
			stop()
			continue
		case <-timerCh:
		}

		t.ProcessExpired(t.clock.Now())
	}
}

func (t *ThreadedEngine) nextSleep() time.Duration {
	t.SafeEngine.mu.Lock()
	nearest, ok := t.SafeEngine.inner.NearestFireTime()
	t.SafeEngine.mu.Unlock()
	if !ok {
		return time.Hour
	}
	d := nearest.Sub(t.clock.Now())
	if d < 0 {
		d = 0
	}
	return d
}
