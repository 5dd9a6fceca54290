package sobj

import (
	"time"

	"github.com/Stiffstream/sobjectizer-sub000/timer"
)

// Send builds an immutable envelope carrying msg and pushes it into
// target.
func Send[T any](target *Chain, msg T) (PushStatus, error) {
	tag := TagFor[T]()
	env := newEnvelope(tag, msg, Immutable)
	return target.Push(tag, env, PushOrdinary)
}

// SendMutable builds a mutable envelope carrying msg and pushes it into
// target. target must be configured single-consumer
// (ChainConfig.MultiConsumer == false); Push returns ErrMutabilityViolation
// otherwise.
func SendMutable[T any](target *Chain, msg T) (PushStatus, error) {
	tag := TagFor[T]()
	env := newEnvelope(tag, msg, Mutable)
	return target.Push(tag, env, PushOrdinary)
}

// TimerService is the minimal timer surface SendDelayed and SendPeriodic
// need. An
// Engine wrapped in timer.NewSafeEngine or timer.NewThreadedEngine
// satisfies this directly.
type TimerService interface {
	Allocate() timer.Handle
	Activate(h timer.Handle, pause, period time.Duration, action timer.Action) (bool, error)
	Deactivate(h timer.Handle) error
}

// DelayedHandle is returned by SendDelayed; Cancel deactivates the
// underlying one-shot timer. Calling Cancel after the timer has already
// fired, or more than once, is a no-op.
type DelayedHandle struct {
	svc    TimerService
	handle timer.Handle
}

// Cancel deactivates the scheduled send. Safe to call multiple times.
func (h DelayedHandle) Cancel() error {
	return translateTimerError(h.svc.Deactivate(h.handle))
}

// SendDelayed schedules a one-shot timer that, on fire, pushes msg into
// target using PushFromTimer, so a wait-overflow policy never blocks the
// firing timer.
func SendDelayed[T any](svc TimerService, target *Chain, pause time.Duration, msg T) (DelayedHandle, error) {
	tag := TagFor[T]()
	env := newEnvelope(tag, msg, Immutable)
	h := svc.Allocate()
	_, err := svc.Activate(h, pause, 0, func() {
		_, _ = target.Push(tag, env, PushFromTimer)
	})
	return DelayedHandle{svc: svc, handle: h}, translateTimerError(err)
}

// PeriodicHandle is returned by SendPeriodic; Cancel deactivates the
// recurring timer.
type PeriodicHandle struct {
	svc    TimerService
	handle timer.Handle
}

// Cancel deactivates the periodic send. Safe to call multiple times.
func (h PeriodicHandle) Cancel() error {
	return translateTimerError(h.svc.Deactivate(h.handle))
}

// SendPeriodic schedules a recurring timer that re-pushes the same
// envelope into target every period, starting after pause.
// Mutable messages require period == 0 (ErrInvalidPeriodic otherwise),
// since more than one firing of the same mutable payload would violate the
// single-consumer/single-observation invariant.
func SendPeriodic[T any](svc TimerService, target *Chain, pause, period time.Duration, msg T, mutable bool) (PeriodicHandle, error) {
	if mutable && period != 0 {
		return PeriodicHandle{}, ErrInvalidPeriodic
	}
	tag := TagFor[T]()
	mutability := Immutable
	if mutable {
		mutability = Mutable
	}
	env := newEnvelope(tag, msg, mutability)
	h := svc.Allocate()
	_, err := svc.Activate(h, pause, period, func() {
		_, _ = target.Push(tag, env, PushFromTimer)
	})
	return PeriodicHandle{svc: svc, handle: h}, translateTimerError(err)
}

// Future is the result of RequestFuture: a single-shot slot the receiver's
// handler fulfils by returning a value.
type Future[Resp any] struct {
	slot *replySlot
}

// Wait blocks until the slot is fulfilled or wait elapses. wait ==
// InfiniteWait() blocks forever; ErrNoResult is returned on timeout.
func (f Future[Resp]) Wait(clock Clock, wait Remaining) (Resp, error) {
	var zero Resp
	if wait.IsZero() {
		select {
		case r := <-f.slot.ch:
			return replyAs[Resp](r)
		default:
			return zero, ErrNoResult
		}
	}
	if wait.IsInfinite() {
		r := <-f.slot.ch
		return replyAs[Resp](r)
	}
	timerCh, stop := clock.NewTimer(wait.Duration())
	defer func() {
		if stop != nil {
			stop()
		}
	}()
	select {
	case r := <-f.slot.ch:
		return replyAs[Resp](r)
	case <-timerCh:
		return zero, ErrNoResult
	}
}

func replyAs[Resp any](r replyResult) (Resp, error) {
	var zero Resp
	if r.err != nil {
		return zero, r.err
	}
	v, _ := r.value.(Resp) //nolint:forcetypeassert // fulfilled only by the matching handler
	return v, nil
}

// RequestFuture builds a service-request envelope carrying req, pushes it
// into target, and returns a Future the caller can Wait on. The receiving
// handler fulfils the slot by returning (Resp, error) from a
// ReplyHandlerFor-built Handler.
func RequestFuture[Req, Resp any](target *Chain, req Req) (Future[Resp], PushStatus, error) {
	tag := TagFor[Req]()
	env, slot := newServiceRequestEnvelope(tag, req)
	status, err := target.Push(tag, env, PushOrdinary)
	return Future[Resp]{slot: slot}, status, err
}

// RequestValue is the synchronous form of RequestFuture: it blocks for up
// to wait before raising ErrNoResult.
func RequestValue[Req, Resp any](target *Chain, clock Clock, req Req, wait Remaining) (Resp, error) {
	future, status, err := RequestFuture[Req, Resp](target, req)
	var zero Resp
	if err != nil {
		return zero, err
	}
	if status != Stored {
		return zero, ErrChainClosed
	}
	return future.Wait(clock, wait)
}

// ReplyHandlerFor builds a Handler that invokes fn and fulfils the
// envelope's reply slot with its result, wiring a handler's return value
// into a pending Future/RequestValue call. Handlers built with
// ReplyHandlerFor are intended for request_future/request_value targets;
// using one on an envelope with no reply slot is harmless (the fulfil is
// simply never observed).
func ReplyHandlerFor[Req, Resp any](fn func(req Req) (Resp, error)) Handler {
	tag := TagFor[Req]()
	return Handler{tag: tag, fn: func(env *Envelope) error {
		req, _ := env.Payload().(Req) //nolint:forcetypeassert // tag match guarantees this assertion
		resp, err := fn(req)
		if env.reply != nil {
			env.reply.fulfil(resp, err)
		}
		return err
	}}
}
