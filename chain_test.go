package sobj

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_UnboundedPushExtract(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	tag := TagFor[int]()
	env := newEnvelope(tag, 42, Immutable)

	status, err := ch.Push(tag, env, PushOrdinary)
	require.NoError(t, err)
	assert.Equal(t, Stored, status)

	gotTag, gotEnv, extractStatus := ch.Extract()
	assert.Equal(t, MsgExtracted, extractStatus)
	assert.Equal(t, tag, gotTag)
	assert.Equal(t, 42, gotEnv.Payload())
}

func TestChain_BoundedOverflowDropNewest(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Bounded(2, false), Overflow: OverflowDropNewest})
	tag := TagFor[int]()

	for _, v := range []int{1, 2, 3, 4} {
		_, err := ch.Push(tag, newEnvelope(tag, v, Immutable), PushOrdinary)
		require.NoError(t, err)
	}
	ch.Close(true)

	var got []int
	for {
		_, env, status := ch.Extract()
		if status != MsgExtracted {
			assert.Equal(t, ExtractChainClosed, status)
			break
		}
		got = append(got, env.Payload().(int)) //nolint:forcetypeassert
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestChain_OverflowThrow(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Bounded(1, false), Overflow: OverflowThrow})
	tag := TagFor[int]()

	_, err := ch.Push(tag, newEnvelope(tag, 1, Immutable), PushOrdinary)
	require.NoError(t, err)

	_, err = ch.Push(tag, newEnvelope(tag, 2, Immutable), PushOrdinary)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestChain_MutabilityViolation(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded(), MultiConsumer: true})
	tag := TagFor[int]()

	_, err := ch.Push(tag, newEnvelope(tag, 1, Mutable), PushOrdinary)
	require.ErrorIs(t, err, ErrMutabilityViolation)
}

func TestChain_CloseRetainContent(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	tag := TagFor[int]()
	_, _ = ch.Push(tag, newEnvelope(tag, 1, Immutable), PushOrdinary)
	ch.Close(true)

	_, _, status := ch.Extract()
	assert.Equal(t, MsgExtracted, status)

	_, _, status = ch.Extract()
	assert.Equal(t, ExtractChainClosed, status)
}

func TestChain_CloseIsIdempotent(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	ch.Close(false)
	assert.NotPanics(t, func() { ch.Close(false) })
	assert.True(t, ch.IsClosed())
}

func TestChain_WaitOverflowUnblocksOnExtract(t *testing.T) {
	ch := NewChain(ChainConfig{
		Capacity: Bounded(1, false),
		Overflow: OverflowWait,
		Clock:    SystemClock{},
	})
	tag := TagFor[int]()
	_, err := ch.Push(tag, newEnvelope(tag, 1, Immutable), PushOrdinary)
	require.NoError(t, err)

	done := make(chan PushStatus, 1)
	go func() {
		status, _ := ch.Push(tag, newEnvelope(tag, 2, Immutable), PushOrdinary)
		done <- status
	}()

	time.Sleep(20 * time.Millisecond)
	_, _, _ = ch.Extract()

	select {
	case status := <-done:
		assert.Equal(t, Stored, status)
	case <-time.After(time.Second):
		t.Fatal("wait-overflow push never unblocked")
	}
}

func TestChain_PushFromTimerNeverBlocks(t *testing.T) {
	ch := NewChain(ChainConfig{
		Capacity: Bounded(1, false),
		Overflow: OverflowWait,
		Clock:    SystemClock{},
	})
	tag := TagFor[int]()
	_, _ = ch.Push(tag, newEnvelope(tag, 1, Immutable), PushOrdinary)

	status, err := ch.Push(tag, newEnvelope(tag, 2, Immutable), PushFromTimer)
	require.NoError(t, err)
	assert.Equal(t, NotStored, status)
}

func TestChain_Stats(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Bounded(1, false), Overflow: OverflowDropNewest})
	tag := TagFor[int]()
	_, _ = ch.Push(tag, newEnvelope(tag, 1, Immutable), PushOrdinary)
	_, _ = ch.Push(tag, newEnvelope(tag, 2, Immutable), PushOrdinary)
	_, _, _ = ch.Extract()

	stats := ch.Stats()
	assert.Equal(t, uint64(1), stats.Pushed)
	assert.Equal(t, uint64(1), stats.Overflows)
	assert.Equal(t, uint64(1), stats.Extracted)
}
