package cloudsync

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteNotFound indicates the remote store has no copy of the project.
	ErrRemoteNotFound = errors.New("project not found in remote store")
	// ErrRemoteConflict indicates the remote store holds a newer revision.
	ErrRemoteConflict = errors.New("remote store holds a newer revision")
	// ErrRemoteRejected indicates a request the remote will never accept.
	ErrRemoteRejected = errors.New("remote store rejected the request")
	// ErrOffline indicates delivery paused because connectivity is down.
	ErrOffline = errors.New("offline")
)

// SyncError describes a delivery that failed for good.
type SyncError struct {
	JobID     string
	ProjectID string
	Revision  int64
	Attempts  int
	Err       error
}

func (e *SyncError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("sync %s: %v", e.ProjectID, e.Err)
	}
	return fmt.Sprintf("sync %s revision %d failed after %d attempts: %v", e.ProjectID, e.Revision, e.Attempts, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func permanent(err error) bool {
	return errors.Is(err, ErrRemoteConflict) || errors.Is(err, ErrRemoteRejected)
}
