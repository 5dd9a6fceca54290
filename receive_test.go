package sobj

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type helloSignal struct{}

func TestReceive_SimpleEnqueueDequeue(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	_, _ = Send(ch, 42)
	_, _ = Send(ch, helloSignal{})

	var gotInt int
	var sawSignal bool
	intHandler := HandlerFor(func(v int) error { gotInt = v; return nil })
	helloHandler := HandlerFor(func(helloSignal) error { sawSignal = true; return nil })

	// A bare receive consumes exactly one message: the int, not the signal.
	res := Receive(ch, SystemClock{}, nil, NewReceiveParams().NoWait(), intHandler, helloHandler)
	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, 1, res.Handled)
	assert.Equal(t, 42, gotInt)
	assert.False(t, sawSignal)

	// The signal is still queued; the next call picks it up.
	res = Receive(ch, SystemClock{}, nil, NewReceiveParams().NoWait(), intHandler, helloHandler)
	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, 1, res.Handled)
	assert.True(t, sawSignal)
}

func TestReceive_HandleAllDrainsTheChain(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	for _, v := range []int{1, 2, 3} {
		_, _ = Send(ch, v)
	}

	var got []int
	res := Receive(ch, SystemClock{}, nil, NewReceiveParams().NoWait().HandleAll(),
		HandlerFor(func(v int) error { got = append(got, v); return nil }))

	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 3, res.Extracted)
	assert.Equal(t, 3, res.Handled)
}

func TestReceive_StopPredicateCheckedAfterEmptyWait(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	// Leave a stale not-empty token behind so the first wait wakes
	// spuriously with the queue still empty.
	_, _ = Send(ch, 1)
	_, _, _ = ch.Extract()

	res := Receive(ch, SystemClock{}, nil,
		NewReceiveParams().InfiniteWait().StopOn(func() bool { return true }))
	assert.Equal(t, StoppedByPredicate, res.Status)
}

func TestReceive_HandleNZeroReturnsImmediately(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	_, _ = Send(ch, 1)

	res := Receive(ch, SystemClock{}, nil, NewReceiveParams().HandleN(0))
	assert.Equal(t, 0, res.Extracted)
	assert.Equal(t, 0, res.Handled)
}

func TestReceive_TimerFiresIntoChain(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	env := NewStdEnvironment(EnvironmentParams{})
	svc := env.NewTimerEngine(EngineWheel)

	start := time.Now()
	_, err := SendDelayed(svc, ch, 100*time.Millisecond, 7)
	require.NoError(t, err)

	// Drive the wheel engine manually since no threaded mixin is running.
	deadline := time.Now().Add(2 * time.Second)
	var got int
	for time.Now().Before(deadline) {
		if sink, ok := svc.(interface{ ProcessExpired(time.Time) }); ok {
			sink.ProcessExpired(time.Now())
		}
		res := Receive(ch, SystemClock{}, nil, NewReceiveParams().Wait(10*time.Millisecond).ExtractN(1),
			HandlerFor(func(v int) error { got = v; return nil }))
		if res.Extracted > 0 {
			break
		}
	}

	assert.Equal(t, 7, got)
	assert.True(t, time.Since(start) >= 90*time.Millisecond)
}

func TestReceive_ExtractChainClosed(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	ch.Close(false)

	closed := false
	res := Receive(ch, SystemClock{}, nil, NewReceiveParams().NoWait().OnClose(func() { closed = true }))
	assert.Equal(t, StoppedByClose, res.Status)
	assert.True(t, closed)
}
