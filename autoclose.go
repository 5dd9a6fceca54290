package sobj

// AutoClose is a scoped guard over one or several chains.
// On Close it calls Chain.Close(retain) on each held chain exactly once, in
// construction order. A typical use is `defer guard.Close()` right after
// construction.
type AutoClose struct {
	retain bool
	chains []*Chain
	closed bool
}

// AutoCloseDropContent builds a guard that discards buffered content on
// close.
func AutoCloseDropContent(chains ...*Chain) *AutoClose {
	return &AutoClose{retain: false, chains: chains}
}

// AutoCloseRetainContent builds a guard that lets already-buffered content
// drain via Extract before ExtractChainClosed is reported.
func AutoCloseRetainContent(chains ...*Chain) *AutoClose {
	return &AutoClose{retain: true, chains: chains}
}

// Close closes every held chain in construction order. It is idempotent:
// calling it more than once (directly, or once via defer after an earlier
// explicit call) has the same observable effect as calling it once, since
// Chain.Close itself is idempotent and AutoClose additionally short-circuits
// repeat calls.
func (a *AutoClose) Close() {
	if a.closed {
		return
	}
	a.closed = true
	for _, c := range a.chains {
		c.Close(a.retain)
	}
}
