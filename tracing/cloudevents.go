// Package tracing adapts sobj.Tracer to the CloudEvents specification, so
// chain activity can be shipped to any CloudEvents-aware collector.
package tracing

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	sobj "github.com/Stiffstream/sobjectizer-sub000"
)

// Event type constants for the four chain lifecycle hooks sobj.Tracer
// exposes.
const (
	EventTypePush     = "com.sobjectizer.chain.push"
	EventTypeOverflow = "com.sobjectizer.chain.overflow"
	EventTypeExtract  = "com.sobjectizer.chain.extract"
	EventTypeClose    = "com.sobjectizer.chain.close"
)

// Sink is the minimal transport this package needs: something that accepts
// a built CloudEvent. A real deployment plugs in an HTTP or AMQP
// cloudevents.Client; tests can use a slice-collecting stub.
type Sink interface {
	Send(ctx context.Context, event cloudevents.Event) error
}

// CloudEventsTracer implements sobj.Tracer, converting each hook into a
// CloudEvents envelope with a UUIDv7 event id (falling back to v4 if v7
// generation ever fails) and forwarding it to sink. Send errors are
// reported to onSendError rather than propagated, since a tracer must never
// block or fail the chain operation it is observing.
type CloudEventsTracer struct {
	source      string
	sink        Sink
	ctx         context.Context
	onSendError func(err error)
}

// NewCloudEventsTracer builds a tracer that tags every event with source
// and forwards it to sink via ctx. onSendError may be nil, in which case
// send failures are silently dropped.
func NewCloudEventsTracer(ctx context.Context, source string, sink Sink, onSendError func(err error)) *CloudEventsTracer {
	if onSendError == nil {
		onSendError = func(error) {}
	}
	return &CloudEventsTracer{source: source, sink: sink, ctx: ctx, onSendError: onSendError}
}

func (t *CloudEventsTracer) newEvent(eventType string, data map[string]any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(t.source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

func (t *CloudEventsTracer) send(event cloudevents.Event) {
	if err := t.sink.Send(t.ctx, event); err != nil {
		t.onSendError(err)
	}
}

// OnPush implements sobj.Tracer.
func (t *CloudEventsTracer) OnPush(chainID string, tag sobj.TypeTag) {
	t.send(t.newEvent(EventTypePush, map[string]any{"chain_id": chainID, "type": tag.Name()}))
}

// OnOverflow implements sobj.Tracer.
func (t *CloudEventsTracer) OnOverflow(chainID string, tag sobj.TypeTag) {
	t.send(t.newEvent(EventTypeOverflow, map[string]any{"chain_id": chainID, "type": tag.Name()}))
}

// OnExtract implements sobj.Tracer.
func (t *CloudEventsTracer) OnExtract(chainID string, tag sobj.TypeTag) {
	t.send(t.newEvent(EventTypeExtract, map[string]any{"chain_id": chainID, "type": tag.Name()}))
}

// OnClose implements sobj.Tracer.
func (t *CloudEventsTracer) OnClose(chainID string) {
	t.send(t.newEvent(EventTypeClose, map[string]any{"chain_id": chainID}))
}

var _ sobj.Tracer = (*CloudEventsTracer)(nil)

// generateEventID builds a time-ordered event id using UUIDv7, falling back
// to UUIDv4 if v7 generation ever fails.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
