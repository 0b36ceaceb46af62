package cloudsync

import (
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

// JobStatus is the lifecycle state of a queued delivery.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobSynced     JobStatus = "synced"
	JobDead       JobStatus = "dead"
	JobSuperseded JobStatus = "superseded"
)

// Job is one queued delivery of a record snapshot to the remote store.
type Job struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	ProjectID string          `json:"project_id"`
	Revision  int64           `json:"revision"`
	Payload   *project.Record `json:"-"`
	Status    JobStatus       `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Counts summarizes the queue of a single project.
type Counts struct {
	Pending            int
	Dead               int
	LastSyncedRevision int64
	LastError          string
}

// State is the observable sync status of a project.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateFailed  State = "failed"
)

// Status is what the UI polls to render sync progress.
type Status struct {
	ProjectID          string `json:"project_id"`
	State              State  `json:"state"`
	Pending            int    `json:"pending"`
	DeadLetters        int    `json:"dead_letters"`
	LastError          string `json:"last_error,omitempty"`
	LastSyncedRevision int64  `json:"last_synced_revision"`
	Online             bool   `json:"online"`
}

// Config bounds the delivery retry policy.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RequestTimeout  time.Duration
}

// DefaultConfig returns the standard retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		RequestTimeout:  10 * time.Second,
	}
}
