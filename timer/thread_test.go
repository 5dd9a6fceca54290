package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeEngine_ProcessExpiredRunsActionsLockFree(t *testing.T) {
	inner := NewListEngine(nil, nil)
	e := NewSafeEngine(inner)
	h := e.Allocate()

	var reentered bool
	h2 := e.Allocate()
	_, err := e.Activate(h, time.Millisecond, 0, func() {
		// Re-entering the engine from inside an action must not deadlock.
		_, rerr := e.Activate(h2, time.Hour, 0, func() {})
		reentered = rerr == nil
	})
	require.NoError(t, err)

	e.ProcessExpired(time.Now().Add(2 * time.Millisecond))
	assert.True(t, reentered)
}

func TestThreadedEngine_FiresOneShotAndStops(t *testing.T) {
	inner := NewListEngine(nil, nil)
	te := NewThreadedEngine(inner, nil)
	defer te.Stop()

	fired := make(chan struct{}, 1)
	h := te.Allocate()
	_, err := te.Activate(h, 20*time.Millisecond, 0, func() { fired <- struct{}{} })
	require.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("threaded engine never fired the timer")
	}
}

func TestThreadedEngine_ActivateWakesSleepingWorker(t *testing.T) {
	inner := NewListEngine(nil, nil)
	te := NewThreadedEngine(inner, nil)
	defer te.Stop()

	// Schedule a far-future timer first so the worker sleeps for a long
	// time, then schedule a near one: Activate must wake it immediately
	// rather than waiting out the first sleep.
	far := te.Allocate()
	_, err := te.Activate(far, time.Hour, 0, func() {})
	require.NoError(t, err)

	near := te.Allocate()
	fired := make(chan struct{}, 1)
	start := time.Now()
	_, err = te.Activate(near, 15*time.Millisecond, 0, func() { fired <- struct{}{} })
	require.NoError(t, err)

	select {
	case <-fired:
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("threaded engine did not wake for the newly nearest timer")
	}
}

func TestThreadedEngine_StopIsIdempotent(t *testing.T) {
	te := NewThreadedEngine(NewListEngine(nil, nil), nil)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			te.Stop()
		}()
	}
	wg.Wait()
}
