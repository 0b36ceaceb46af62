package stage

import (
	"context"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

// Store is the record store the controller writes through.
type Store interface {
	NewDraft(req project.CreateRequest) *project.Record
	Open(ctx context.Context, id string) (*project.OpenResult, error)
	Save(ctx context.Context, rec *project.Record) (*project.Record, error)
}

// Tracker receives telemetry events. Calls must not block.
type Tracker interface {
	Track(name string, props map[string]any)
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer
