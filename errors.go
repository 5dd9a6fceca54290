package sobj

import (
	"errors"
	"fmt"

	"github.com/Stiffstream/sobjectizer-sub000/timer"
)

// TimerStatus mirrors timer.Status so callers reporting on a SendPeriodic/
// SendDelayed handle's lifecycle don't need to import the timer package
// directly.
type TimerStatus = timer.Status

// Errors raised for programmer-error conditions (selector misuse, mutable
// message rules, timer state conflicts, request timeouts). Expected,
// high-volume outcomes such as a full or closed chain are represented as
// status enums instead — see PushStatus and ExtractStatus in chain.go.
var (
	// ErrOverflow is raised by Push when the chain's overflow policy is
	// OverflowThrow and the chain is at capacity.
	ErrOverflow = errors.New("mchain overflow")

	// ErrAlreadyActive is raised when a prepared or extensible selector
	// that is already active is activated again.
	ErrAlreadyActive = errors.New("selector already active")

	// ErrExtensibleSelectModifyActive is raised by AddCases when the
	// extensible selector it targets is currently active.
	ErrExtensibleSelectModifyActive = errors.New("cannot modify an active extensible selector")

	// ErrMutabilityViolation is raised when a mutable message is pushed
	// into a chain configured for multiple consumers.
	ErrMutabilityViolation = errors.New("mutable message pushed into a multi-consumer chain")

	// ErrInvalidPeriodic is raised by SendPeriodic when a non-zero period
	// is requested for a mutable message.
	ErrInvalidPeriodic = errors.New("periodic mutable messages are not allowed")

	// ErrTimerNotDeactivated is surfaced by the send helpers when the
	// underlying timer operation requires an inactive timer handle.
	ErrTimerNotDeactivated = errors.New("timer is not in the inactive state")

	// ErrTimerInProcessing is what translateTimerError maps
	// timer.ErrInProcessing onto: a reschedule of a timer that is in the
	// middle of firing (pending-exec or pending-deactivation). The send
	// helpers only activate and deactivate timers, and neither operation
	// reports it.
	ErrTimerInProcessing = errors.New("timer is currently being processed")

	// ErrNoResult is raised by RequestValue when the wait duration elapses
	// before a reply is received.
	ErrNoResult = errors.New("no result received within the requested wait")

	// ErrChainClosed is returned by RequestValue when the request is not
	// stored in the target chain (the chain is closed, or an overflow
	// policy dropped the request). The chain-level Push/Extract API reports
	// these cases as a status instead.
	ErrChainClosed = errors.New("mchain is closed")
)

func wrapOverflowError(chainID string, tag TypeTag) error {
	return fmt.Errorf("%w: chain %s, message type %s", ErrOverflow, chainID, tag.Name())
}

func wrapMutabilityViolation(chainID string, tag TypeTag) error {
	return fmt.Errorf("%w: chain %s, message type %s", ErrMutabilityViolation, chainID, tag.Name())
}

// translateTimerError maps the timer subpackage's sentinels onto this
// package's error kinds, so callers of the send helpers can errors.Is
// against ErrTimerNotDeactivated/ErrTimerInProcessing without importing
// the timer package.
func translateTimerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, timer.ErrNotDeactivated):
		return fmt.Errorf("%w: %v", ErrTimerNotDeactivated, err)
	case errors.Is(err, timer.ErrInProcessing):
		return fmt.Errorf("%w: %v", ErrTimerInProcessing, err)
	default:
		return err
	}
}
