package sobj

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stiffstream/sobjectizer-sub000/timer"
)

func TestSendMutable_RejectsMultiConsumerChain(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded(), MultiConsumer: true})
	_, err := SendMutable(ch, 7)
	require.ErrorIs(t, err, ErrMutabilityViolation)
}

func TestSendPeriodic_InvalidPeriodicForMutable(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	env := NewStdEnvironment(EnvironmentParams{})
	svc := env.NewTimerEngine(EngineWheel)

	_, err := SendPeriodic(svc, ch, 10*time.Millisecond, 10*time.Millisecond, 1, true)
	require.ErrorIs(t, err, ErrInvalidPeriodic)
}

func TestTimerErrorsSurfaceAsPackageSentinels(t *testing.T) {
	assert.NoError(t, translateTimerError(nil))
	assert.ErrorIs(t, translateTimerError(timer.ErrNotDeactivated), ErrTimerNotDeactivated)
	assert.ErrorIs(t, translateTimerError(timer.ErrInProcessing), ErrTimerInProcessing)
}

func TestDelayedHandle_CancelTwiceDoesNotPanic(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	env := NewStdEnvironment(EnvironmentParams{})
	svc := env.NewTimerEngine(EngineWheel)

	handle, err := SendDelayed(svc, ch, time.Hour, 1)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_ = handle.Cancel()
		_ = handle.Cancel()
	})
}

func TestPeriodicTimer_CancellationBoundsFireCount(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	env := NewStdEnvironment(EnvironmentParams{
		WheelGranularity: 5 * time.Millisecond,
	})
	svc := env.NewTimerEngine(EngineWheel)

	handle, err := SendPeriodic(svc, ch, 100*time.Millisecond, 100*time.Millisecond, 1, false)
	require.NoError(t, err)

	type driver interface{ ProcessExpired(time.Time) }
	drv := svc.(driver) //nolint:forcetypeassert // NewTimerEngine always returns a *SafeEngine here

	deadline := time.Now().Add(350 * time.Millisecond)
	for time.Now().Before(deadline) {
		drv.ProcessExpired(time.Now())
		time.Sleep(5 * time.Millisecond)
	}
	_ = handle.Cancel()
	drv.ProcessExpired(time.Now())

	count := 0
	for {
		_, _, status := ch.Extract()
		if status != MsgExtracted {
			break
		}
		count++
	}
	assert.GreaterOrEqual(t, count, 2)
	assert.LessOrEqual(t, count, 4)
}

func TestRequestValue_TimesOutWithNoResult(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	_, err := RequestValue[int, string](ch, SystemClock{}, 1, WaitFor(20*time.Millisecond))
	require.ErrorIs(t, err, ErrNoResult)
}

func TestRequestFuture_FulfilledByReplyHandler(t *testing.T) {
	ch := NewChain(ChainConfig{Capacity: Unbounded()})
	future, status, err := RequestFuture[int, string](ch, 5)
	require.NoError(t, err)
	require.Equal(t, Stored, status)

	go func() {
		_ = Receive(ch, SystemClock{}, nil, NewReceiveParams().Wait(time.Second).ExtractN(1),
			ReplyHandlerFor(func(req int) (string, error) {
				return "got it", nil
			}),
		)
	}()

	resp, err := future.Wait(SystemClock{}, WaitFor(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "got it", resp)
}
