package foreman

import (
	"errors"
	"fmt"
)

// ErrUnknownTool is returned when a plan names a tool no executor serves.
var ErrUnknownTool = errors.New("unknown tool")

// ErrReplanLimit is returned when a turn exhausts its replanning budget.
var ErrReplanLimit = errors.New("replan limit reached")

// CheckpointError wraps a failed session save. The turn aborts immediately;
// state on disk is whatever the last successful checkpoint wrote.
type CheckpointError struct {
	Op  string
	Err error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint after %s: %v", e.Op, e.Err)
}

func (e *CheckpointError) Unwrap() error {
	return e.Err
}
