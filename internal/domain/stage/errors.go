package stage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpened indicates an operation before the project was viewed or created.
	ErrNotOpened = errors.New("project not opened")
	// ErrInvalidTransition indicates a transition other than to the following stage.
	ErrInvalidTransition = errors.New("invalid stage transition")
	// ErrStageLocked indicates a stage after the current one was requested.
	ErrStageLocked = errors.New("stage not yet unlocked")
)

// PersistenceError reports a failed local write. The transition it belonged to did not happen.
type PersistenceError struct {
	Op        string
	ProjectID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ProjectID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
