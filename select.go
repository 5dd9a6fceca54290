package sobj

import (
	"reflect"
	"sync"
	"time"
)

// SelectStatus reports which termination clause ended a select call.
type SelectStatus int

const (
	StoppedSelectByHandleN SelectStatus = iota
	StoppedSelectByExtractN
	StoppedSelectByEmptyTimeout
	StoppedSelectByTotalTime
	StoppedSelectByPredicate
	StoppedSelectByAllClosed
	StoppedSelectBySend
)

func (s SelectStatus) String() string {
	switch s {
	case StoppedSelectByHandleN:
		return "handle_n"
	case StoppedSelectByExtractN:
		return "extract_n"
	case StoppedSelectByEmptyTimeout:
		return "empty_timeout"
	case StoppedSelectByTotalTime:
		return "total_time"
	case StoppedSelectByPredicate:
		return "stop_on"
	case StoppedSelectByAllClosed:
		return "all_closed"
	case StoppedSelectBySend:
		return "send"
	default:
		return "unknown"
	}
}

// SelectResult summarises the outcome of a select call.
type SelectResult struct {
	Extracted int
	Handled   int
	Sent      int
	Closed    int
	Status    SelectStatus
}

// caseKind distinguishes a receive-case from a send-case.
type caseKind int

const (
	caseReceive caseKind = iota
	caseSend
)

// Case is one chain's participation in a select call. Build one with
// ReceiveCase or SendCase.
type Case struct {
	kind     caseKind
	chain    *Chain
	handlers []Handler // receive-case

	tag       TypeTag // send-case
	env       *Envelope
	onSuccess func()

	done bool // this chain's participation ended (closed, or send succeeded)
}

// ReceiveCase builds a case that dispatches extracted messages from c
// through handlers, exactly as Receive does for a single chain.
func ReceiveCase(c *Chain, handlers ...Handler) Case {
	return Case{kind: caseReceive, chain: c, handlers: handlers}
}

// SendCase builds a case that attempts a single non-blocking push of a
// prebuilt message into c, calling onSuccess once the push is stored.
func SendCase(c *Chain, tag TypeTag, env *Envelope, onSuccess func()) Case {
	return Case{kind: caseSend, chain: c, tag: tag, env: env, onSuccess: onSuccess}
}

// SelectParams is the multi-chain analogue of ReceiveParams.
type SelectParams struct {
	wait         Remaining
	handleN      int
	hasHandleN   bool
	extractN     int
	hasExtractN  bool
	emptyTimeout time.Duration
	hasEmptyTO   bool
	totalTime    time.Duration
	hasTotalTime bool
	stopOn       func() bool
	onClose      func(chainID string)
}

// NewSelectParams starts a builder that waits indefinitely.
func NewSelectParams() SelectParams { return SelectParams{wait: InfiniteWait()} }

func (p SelectParams) NoWait() SelectParams       { p.wait = NoWait(); return p }
func (p SelectParams) InfiniteWait() SelectParams { p.wait = InfiniteWait(); return p }
func (p SelectParams) Wait(d time.Duration) SelectParams { p.wait = WaitFor(d); return p }

func (p SelectParams) HandleN(k int) SelectParams {
	p.handleN, p.hasHandleN = k, true
	return p
}

func (p SelectParams) ExtractN(k int) SelectParams {
	p.extractN, p.hasExtractN = k, true
	return p
}

func (p SelectParams) EmptyTimeout(d time.Duration) SelectParams {
	p.emptyTimeout, p.hasEmptyTO = d, true
	return p
}

func (p SelectParams) TotalTime(d time.Duration) SelectParams {
	p.totalTime, p.hasTotalTime = d, true
	return p
}

func (p SelectParams) StopOn(pred func() bool) SelectParams { p.stopOn = pred; return p }

// OnClose registers a callback invoked once per chain that becomes
// detectably closed during the call.
func (p SelectParams) OnClose(cb func(chainID string)) SelectParams { p.onClose = cb; return p }

// Select runs the multi-chain extract/dispatch loop over cases,
// multiplexing their chains' readiness channels with reflect.Select, since
// the case set (and therefore the channel set) is only known at runtime.
func Select(clock Clock, sink ExceptionSink, params SelectParams, cases ...Case) SelectResult {
	if sink == nil {
		sink = NewNoopExceptionSink()
	}
	cs := make([]Case, len(cases))
	copy(cs, cases)

	res := SelectResult{}
	totalRemaining := InfiniteWait()
	if params.hasTotalTime {
		totalRemaining = WaitFor(params.totalTime)
	}
	emptyRemaining := InfiniteWait()
	if params.hasEmptyTO {
		emptyRemaining = WaitFor(params.emptyTimeout)
	}

	checkCounts := func() (SelectStatus, bool) {
		if params.hasHandleN && res.Handled >= params.handleN {
			return StoppedSelectByHandleN, true
		}
		if params.hasExtractN && res.Extracted >= params.extractN {
			return StoppedSelectByExtractN, true
		}
		return 0, false
	}
	allClosed := func() bool {
		for _, c := range cs {
			if !c.done {
				return false
			}
		}
		return true
	}

	if allClosed() {
		res.Status = StoppedSelectByAllClosed
		return res
	}
	if params.hasHandleN && params.handleN == 0 {
		return res
	}
	if params.hasExtractN && params.extractN == 0 {
		return res
	}

	for {
		// Poll every still-live case once per wake-up; a flat scan is
		// correct because every chain op below is non-blocking.
		progressed := false
		for i := range cs {
			c := &cs[i]
			if c.done {
				continue
			}
			switch c.kind {
			case caseReceive:
				tag, env, status := c.chain.Extract()
				switch status {
				case MsgExtracted:
					progressed = true
					res.Extracted++
					emptyRemaining = InfiniteWait()
					if params.hasEmptyTO {
						emptyRemaining = WaitFor(params.emptyTimeout)
					}
					handled, stop := dispatch(c.handlers, tag, env, sink)
					if handled {
						res.Handled++
					}
					if stop {
						return res
					}
				case ExtractChainClosed:
					progressed = true
					c.done = true
					res.Closed++
					if params.onClose != nil {
						params.onClose(c.chain.ID())
					}
				case NoMessages:
				}

			case caseSend:
				status, _ := c.chain.Push(c.tag, c.env, PushNonBlocking)
				switch status {
				case Stored:
					res.Sent++
					if c.onSuccess != nil {
						c.onSuccess()
					}
					res.Status = StoppedSelectBySend
					return res
				case PushChainClosed:
					progressed = true
					c.done = true
					res.Closed++
					if params.onClose != nil {
						params.onClose(c.chain.ID())
					}
				case NotStored, Deferred:
				}
			}

			if st, done := checkCounts(); done {
				res.Status = st
				return res
			}
		}

		if params.stopOn != nil && params.stopOn() {
			res.Status = StoppedSelectByPredicate
			return res
		}
		if allClosed() {
			res.Status = StoppedSelectByAllClosed
			return res
		}
		if progressed {
			continue
		}

		if params.wait.IsZero() && !params.wait.IsInfinite() {
			res.Status = StoppedSelectByEmptyTimeout
			return res
		}
		waitFor := Min(params.wait, Min(emptyRemaining, totalRemaining))
		woke, timedOut := waitOnCases(cs, clock, waitFor)
		if !woke && timedOut {
			switch {
			case params.hasTotalTime && totalRemaining.Sub(waitFor.Duration()).IsZero():
				res.Status = StoppedSelectByTotalTime
			default:
				res.Status = StoppedSelectByEmptyTimeout
			}
			return res
		}
		if params.hasTotalTime {
			totalRemaining = totalRemaining.Sub(waitFor.Duration())
			if totalRemaining.IsZero() {
				res.Status = StoppedSelectByTotalTime
				return res
			}
		}
		if params.hasEmptyTO {
			emptyRemaining = emptyRemaining.Sub(waitFor.Duration())
		}
	}
}

// waitOnCases blocks until any live case's chain signals readiness or
// closure, or budget elapses.
func waitOnCases(cs []Case, clock Clock, budget Remaining) (woke, timedOut bool) {
	if budget.IsZero() {
		return false, true
	}

	live := make([]reflect.SelectCase, 0, len(cs)*2+1)
	for i := range cs {
		if cs[i].done {
			continue
		}
		// A receive-case becomes ready when its chain gains a message; a
		// deferred/failed send-case becomes ready when space frees up.
		ready := cs[i].chain.notEmptyChannel()
		if cs[i].kind == caseSend {
			ready = cs[i].chain.notFullChannel()
		}
		live = append(live,
			reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ready)},
			reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(cs[i].chain.closedChannel())},
		)
	}
	if len(live) == 0 {
		return false, true
	}

	var timerCh <-chan time.Time
	var stop func() bool
	if !budget.IsInfinite() {
		timerCh, stop = clock.NewTimer(budget.Duration())
		defer func() {
			if stop != nil {
				stop()
			}
		}()
		live = append(live, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timerCh)})
	}

	chosen, _, _ := reflect.Select(live)
	if !budget.IsInfinite() && chosen == len(live)-1 {
		return false, true
	}
	return true, false
}

// PreparedSelector owns a fixed params+case set and can be invoked
// repeatedly via Select(prepared). A mutex-guarded status word forbids
// concurrent activation.
type PreparedSelector struct {
	mu     sync.Mutex
	active bool
	params SelectParams
	cases  []Case
}

// PrepareSelect builds a reusable selector over a fixed case set.
func PrepareSelect(params SelectParams, cases ...Case) *PreparedSelector {
	return &PreparedSelector{params: params, cases: cases}
}

// Select runs the prepared configuration once. It raises ErrAlreadyActive
// if another goroutine currently has this selector active.
func (p *PreparedSelector) Select(clock Clock, sink ExceptionSink) (SelectResult, error) {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return SelectResult{}, ErrAlreadyActive
	}
	p.active = true
	cases := make([]Case, len(p.cases))
	copy(cases, p.cases)
	params := p.params
	p.mu.Unlock()

	res := Select(clock, sink, params, cases...)

	p.mu.Lock()
	p.active = false
	p.mu.Unlock()

	return res, nil
}

// ExtensibleSelector is a PreparedSelector whose case list may be mutated
// while passive.
type ExtensibleSelector struct {
	prepared *PreparedSelector
}

// MakeExtensibleSelect builds an extensible selector with an initial
// (possibly empty) case set.
func MakeExtensibleSelect(params SelectParams, cases ...Case) *ExtensibleSelector {
	return &ExtensibleSelector{prepared: PrepareSelect(params, cases...)}
}

// AddCases appends cases to the selector. It raises
// ErrExtensibleSelectModifyActive if the selector is currently active.
func (e *ExtensibleSelector) AddCases(cases ...Case) error {
	e.prepared.mu.Lock()
	defer e.prepared.mu.Unlock()
	if e.prepared.active {
		return ErrExtensibleSelectModifyActive
	}
	e.prepared.cases = append(e.prepared.cases, cases...)
	return nil
}

// Select runs the current configuration once; see PreparedSelector.Select.
func (e *ExtensibleSelector) Select(clock Clock, sink ExceptionSink) (SelectResult, error) {
	return e.prepared.Select(clock, sink)
}
