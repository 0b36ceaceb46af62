package project

import "context"

// Repository provides durable local persistence for records and their index entries.
type Repository interface {
	Get(ctx context.Context, id string) (*Record, error)
	// Commit writes rec, its index entry and a sync job in one transaction.
	// expectedRevision 0 inserts a new record.
	Commit(ctx context.Context, rec *Record, expectedRevision int64) error
	// Adopt replaces the local copy with remote content, records syncedRevision as the
	// last delivered revision and supersedes queued jobs for the project.
	Adopt(ctx context.Context, rec *Record, expectedRevision, syncedRevision int64) error
	SyncState(ctx context.Context, id string) (SyncState, error)
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
}

// Searcher provides full-text search over the metadata index.
type Searcher interface {
	Search(ctx context.Context, query string, opts ListOptions) ([]Summary, error)
}

// Resolver decides, at load time, whether a remote revision supersedes the local copy.
type Resolver interface {
	Resolve(ctx context.Context, id string, local *Record, state SyncState) (*Resolution, error)
}

// Notifier is told after every committed local write.
type Notifier interface {
	Enqueued(projectID string)
}
