package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultQueueSize = 256

// Recorder is the telemetry emitter. Track never blocks: events are queued and
// written to the activity log by a single background goroutine.
type Recorder struct {
	svc    *Service
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	events chan Entry
	done   chan struct{}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithQueueSize sets how many events may wait before new ones are dropped.
func WithQueueSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.events = make(chan Entry, n)
		}
	}
}

// WithRecorderClock sets the time source for event timestamps.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder starts a recorder writing through svc.
func NewRecorder(svc *Service, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		svc:    svc,
		logger: logger,
		now:    time.Now,
		events: make(chan Entry, defaultQueueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Track queues an event. Events arriving after Close or while the queue is full are dropped.
func (r *Recorder) Track(name string, props map[string]any) {
	entry := Entry{
		ProjectID: stringProp(props, "projectId"),
		Type:      EventType(name),
		Summary:   summarize(name, props),
		Revision:  int64Prop(props, "revision"),
		CreatedAt: r.now().UTC(),
	}
	if len(props) > 0 {
		details, err := json.Marshal(props)
		if err != nil {
			r.logger.Warn("dropping unencodable telemetry properties", "event", name, "error", err)
		} else {
			entry.Details = string(details)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- entry:
	default:
		r.logger.Warn("telemetry queue full, dropping event", "event", name)
	}
}

// Close stops accepting events and waits until queued ones are written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.svc.LogActivity(ctx, &entry); err != nil {
			r.logger.Warn("recording telemetry failed", "event", entry.Type, "error", err)
		}
		cancel()
	}
}

func summarize(name string, props map[string]any) string {
	stage := stringProp(props, "stage")
	switch EventType(name) {
	case TypeStageViewed:
		return fmt.Sprintf("viewed %s", stage)
	case TypeStageCompleted:
		return fmt.Sprintf("completed %s, moved to %s", stage, stringProp(props, "nextStage"))
	case TypeSaveAndContinueLater:
		return fmt.Sprintf("saved %s to continue later", stage)
	case TypeConflictDetected:
		return fmt.Sprintf("adopted remote revision %v", props["remoteRevision"])
	case TypeSyncDeadLettered:
		return fmt.Sprintf("sync of revision %v needs manual retry", props["revision"])
	}
	return name
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		switch s := v.(type) {
		case string:
			return s
		case fmt.Stringer:
			return s.String()
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func int64Prop(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
