package robot

import (
	"errors"
	"fmt"
)

// ErrLocked is wrapped by the ValidationError returned for edits made after
// the session has been initialized.
var ErrLocked = errors.New("layout is locked")

// ErrOutOfBounds is wrapped by the ValidationError returned when bound
// enforcement is on and an edit leaves the workspace.
var ErrOutOfBounds = errors.New("outside workspace")

// ValidationError reports a rejected user edit.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
