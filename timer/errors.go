package timer

import (
	"errors"
	"fmt"
)

// ErrNotDeactivated is returned by Activate when the target handle is not
// Inactive.
var ErrNotDeactivated = errors.New("timer: handle is not inactive")

// ErrInProcessing is returned by Reschedule when the target handle is
// PendingExec or PendingDeactivation. Deactivate does not return it: it
// marks a PendingExec timer PendingDeactivation instead.
var ErrInProcessing = errors.New("timer: handle is currently being processed")

func wrapNotDeactivated(current Status) error {
	return fmt.Errorf("%w: current status %s", ErrNotDeactivated, current)
}

func wrapInProcessing(current Status) error {
	return fmt.Errorf("%w: current status %s", ErrInProcessing, current)
}
