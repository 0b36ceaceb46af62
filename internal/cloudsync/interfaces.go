package cloudsync

import (
	"context"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

// Remote is the cloud copy of every project.
type Remote interface {
	// Fetch returns ErrRemoteNotFound when the remote has never seen the project.
	Fetch(ctx context.Context, id string) (*project.Record, error)
	// Push must be idempotent for a repeated revision. It returns ErrRemoteConflict
	// when the remote already holds a newer revision.
	Push(ctx context.Context, rec *project.Record) error
}

// JobRepository is the durable sync queue and dead-letter list.
type JobRepository interface {
	NextPending(ctx context.Context, projectID string) (*Job, error)
	PendingProjects(ctx context.Context) ([]string, error)
	MarkSynced(ctx context.Context, job *Job) error
	RecordAttempt(ctx context.Context, jobID string, attempts int, lastErr string) error
	// DeadLetter returns repository.ErrNotFound when the job stopped being pending.
	DeadLetter(ctx context.Context, jobID string, attempts int, reason string) error
	DeadLetters(ctx context.Context, projectID string) ([]Job, error)
	Requeue(ctx context.Context, projectID string) (int, error)
	Counts(ctx context.Context, projectID string) (Counts, error)
}

// Tracker receives telemetry events.
type Tracker interface {
	Track(name string, props map[string]any)
}
