package sobj

import (
	"time"

	"github.com/Stiffstream/sobjectizer-sub000/timer"
)

// Environment is the assembly point for everything this package needs
// from its host: a chain factory, a timer-engine factory, an exception
// sink, and a monotonic clock. Callers assemble one Environment per
// process (or per isolated subsystem under test) and pass it to the send/
// receive/select helpers that need it.
type Environment interface {
	// CreateChain builds a new Chain from params, applying the
	// environment's clock, tracer, and logger defaults to any field left
	// unset in params.
	CreateChain(params ChainConfig) *Chain

	// NewTimerEngine builds a timer engine of the requested kind, wired to
	// this environment's clock and error sink.
	NewTimerEngine(kind EngineKind) TimerService

	// ExceptionSink returns the sink receive/select report handler
	// errors and panics to.
	ExceptionSink() ExceptionSink

	// Clock returns the environment's monotonic clock.
	Clock() Clock
}

// EngineKind selects one of the three interchangeable timer engine
// implementations.
type EngineKind int

const (
	// EngineWheel selects the hashed timing wheel.
	EngineWheel EngineKind = iota
	// EngineList selects the ordered doubly-linked list.
	EngineList
	// EngineHeap selects the binary min-heap.
	EngineHeap
)

func (k EngineKind) String() string {
	switch k {
	case EngineWheel:
		return "wheel"
	case EngineList:
		return "list"
	case EngineHeap:
		return "heap"
	default:
		return "unknown"
	}
}

// EnvironmentParams configures a StdEnvironment.
type EnvironmentParams struct {
	Clock  Clock
	Tracer Tracer
	Logger Logger
	Sink   ExceptionSink

	WheelSize        int
	WheelGranularity time.Duration
	HeapCapacity     int

	// Threaded, when true, wraps every timer engine this Environment
	// builds in timer.NewThreadedEngine so it advances on its own worker
	// goroutine instead of requiring an externally-driven ProcessExpired
	// caller.
	Threaded bool
}

func (p *EnvironmentParams) setDefaults() {
	if p.Clock == nil {
		p.Clock = SystemClock{}
	}
	if p.Tracer == nil {
		p.Tracer = NewNoopTracer()
	}
	if p.Logger == nil {
		p.Logger = NewNoopLogger()
	}
	if p.Sink == nil {
		p.Sink = NewNoopExceptionSink()
	}
	if p.WheelSize <= 0 {
		p.WheelSize = timer.DefaultWheelSize
	}
	if p.WheelGranularity <= 0 {
		p.WheelGranularity = timer.DefaultGranularity
	}
	if p.HeapCapacity <= 0 {
		p.HeapCapacity = timer.DefaultHeapCapacity
	}
}

// timerErrorSink adapts an ExceptionSink to timer.ErrorSink, so a single
// sink configured on the Environment also receives action errors/panics
// raised while a timer fires.
type timerErrorSink struct {
	inner ExceptionSink
}

func (s timerErrorSink) OnActionError(_ timer.Handle, err error) { s.inner.OnError(err) }
func (s timerErrorSink) OnActionPanic(_ timer.Handle, recovered any) {
	s.inner.OnPanic(recovered)
}

// StdEnvironment is the default Environment implementation: a plain struct
// over EnvironmentParams with no external dependencies beyond those already
// used by Chain and the timer engines.
type StdEnvironment struct {
	params EnvironmentParams
}

// NewStdEnvironment builds a StdEnvironment, filling unset params with
// their documented defaults.
func NewStdEnvironment(params EnvironmentParams) *StdEnvironment {
	params.setDefaults()
	return &StdEnvironment{params: params}
}

func (e *StdEnvironment) CreateChain(cfg ChainConfig) *Chain {
	if cfg.Clock == nil {
		cfg.Clock = e.params.Clock
	}
	if cfg.Tracer == nil {
		cfg.Tracer = e.params.Tracer
	}
	if cfg.Logger == nil {
		cfg.Logger = e.params.Logger
	}
	return NewChain(cfg)
}

// NewTimerEngine builds one of the three interchangeable engines wrapped
// in the safe mixin, or in the threaded mixin when
// EnvironmentParams.Threaded is set, wired to this environment's clock and
// error sink. sobj.Clock already satisfies both timer.Clock and
// timer.ThreadClock, so no adapter is needed.
func (e *StdEnvironment) NewTimerEngine(kind EngineKind) TimerService {
	sink := timerErrorSink{inner: e.params.Sink}
	clock := e.params.Clock

	switch kind {
	case EngineList:
		inner := timer.NewListEngine(clock, sink)
		if e.params.Threaded {
			return timer.NewThreadedEngine(inner, clock)
		}
		return timer.NewSafeEngine(inner)
	case EngineHeap:
		inner := timer.NewHeapEngine(e.params.HeapCapacity, clock, sink)
		if e.params.Threaded {
			return timer.NewThreadedEngine(inner, clock)
		}
		return timer.NewSafeEngine(inner)
	default:
		inner := timer.NewWheelEngine(e.params.WheelSize, e.params.WheelGranularity, clock, sink)
		if e.params.Threaded {
			return timer.NewThreadedEngine(inner, clock)
		}
		return timer.NewSafeEngine(inner)
	}
}

func (e *StdEnvironment) ExceptionSink() ExceptionSink { return e.params.Sink }

func (e *StdEnvironment) Clock() Clock { return e.params.Clock }
