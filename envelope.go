package sobj

import (
	"fmt"
	"reflect"
	"sync"
)

// Mutability marks whether an envelope's payload may be observed by more
// than one consumer.
type Mutability int

const (
	// Immutable payloads may be read concurrently by many consumers.
	Immutable Mutability = iota
	// Mutable payloads carry a uniqueness invariant: they may only be
	// enqueued into single-consumer chains.
	Mutable
)

func (m Mutability) String() string {
	if m == Mutable {
		return "mutable"
	}
	return "immutable"
}

// TypeTag is a runtime-stable identifier for a message payload type. Chains
// are heterogeneous: they carry (TypeTag, *Envelope) pairs rather than
// filtering by type.
type TypeTag struct {
	rtype reflect.Type
}

// Name returns a human-readable name for the tag, used in error messages
// and tracing.
func (t TypeTag) Name() string {
	if t.rtype == nil {
		return "<nil>"
	}
	return t.rtype.String()
}

func (t TypeTag) String() string { return t.Name() }

// TagFor returns the TypeTag singleton for T. Two TagFor[T]() calls for the
// same T always compare equal; this is what subscription/dispatch lookups
// key off.
func TagFor[T any]() TypeTag {
	var zero T
	return TypeTag{rtype: reflect.TypeOf(zero)}
}

// replySlot is the single-shot future/promise used by service-request
// envelopes.
type replySlot struct {
	once sync.Once
	ch   chan replyResult
}

type replyResult struct {
	value any
	err   error
}

func newReplySlot() *replySlot {
	return &replySlot{ch: make(chan replyResult, 1)}
}

// fulfil resolves the slot exactly once. Subsequent calls are no-ops, which
// keeps handler code that might run twice (e.g. under a misbehaving
// dispatcher) from panicking on a closed/double-sent channel.
func (r *replySlot) fulfil(value any, err error) {
	r.once.Do(func() {
		r.ch <- replyResult{value: value, err: err}
	})
}

// Envelope is the shared carrier of a payload plus its type tag,
// mutability flag, and optional reply slot. Envelopes are created by the
// send helpers in send.go and are
// opaque to callers; chains store them alongside their TypeTag.
type Envelope struct {
	tag        TypeTag
	payload    any
	mutability Mutability
	reply      *replySlot
}

// newEnvelope builds an ordinary (non service-request) envelope.
func newEnvelope(tag TypeTag, payload any, mutability Mutability) *Envelope {
	return &Envelope{tag: tag, payload: payload, mutability: mutability}
}

// newServiceRequestEnvelope builds an envelope carrying a reply slot, used
// by RequestFuture/RequestValue.
func newServiceRequestEnvelope(tag TypeTag, payload any) (*Envelope, *replySlot) {
	slot := newReplySlot()
	return &Envelope{tag: tag, payload: payload, mutability: Immutable, reply: slot}, slot
}

// Tag returns the envelope's type tag.
func (e *Envelope) Tag() TypeTag { return e.tag }

// Mutability returns whether the envelope's payload is mutable.
func (e *Envelope) Mutability() Mutability { return e.mutability }

// IsServiceRequest reports whether this envelope carries a reply slot.
func (e *Envelope) IsServiceRequest() bool { return e.reply != nil }

// Payload returns the raw payload. Handler dispatch (receive.go, select.go)
// type-asserts this against the handler's declared type.
func (e *Envelope) Payload() any { return e.payload }

func (e *Envelope) String() string {
	return fmt.Sprintf("Envelope{tag=%s, mutability=%s, serviceRequest=%v}", e.tag, e.mutability, e.IsServiceRequest())
}
