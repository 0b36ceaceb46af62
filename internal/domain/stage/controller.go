package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

const persistTimeout = 10 * time.Second

// Telemetry event names.
const (
	EventStageViewed          = "stage_viewed"
	EventStageCompleted       = "stage_completed"
	EventSaveAndContinueLater = "save_and_continue_later"
	EventConflictDetected     = "conflict_detected"
)

// View is what a stage screen renders from.
type View struct {
	Stage    project.Stage
	Record   *project.Record
	Conflict *project.ConflictNotice
}

// Outcome reports where the caller should navigate after a stage action.
type Outcome struct {
	From     project.Stage
	To       project.Stage
	Navigate bool
	Repeated bool
	Record   *project.Record
}

// DraftStatus describes the autosave state of one project.
type DraftStatus struct {
	ProjectID  string
	Revision   int64
	HasPending bool
	LastError  string
}

// Controller owns one project's in-progress edits and its stage transitions.
// Edits are coalesced and written after a quiet period; transitions flush first.
type Controller struct {
	projectID string
	store     Store
	tracker   Tracker
	logger    *slog.Logger
	rules     project.Rules
	delay     time.Duration
	after     AfterFunc
	now       func() time.Time

	// writeMu serializes persistence so that every write is based on the last committed revision.
	writeMu sync.Mutex

	mu         sync.Mutex
	record     *project.Record
	pending    project.Patch
	hasPending bool
	timer      Timer
	gen        uint64
	message    string
	lastErr    error
	// last is the most recent transition; it stays valid while record is at its revision.
	last *Outcome
}

// NewController creates a controller for projectID. ViewStage binds it to the stored record.
func NewController(projectID string, store Store, tracker Tracker, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		projectID: projectID,
		store:     store,
		tracker:   tracker,
		logger:    logger.With("project_id", projectID),
		rules:     project.DefaultRules(),
		delay:     DefaultDebounce,
		after:     realAfterFunc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProjectID returns the project this controller edits.
func (c *Controller) ProjectID() string {
	return c.projectID
}

func (c *Controller) bindDraft(rec *project.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = rec.Clone()
}

// ViewStage loads the project and returns the draft for stage.
// A draft that has never been written is served from memory.
func (c *Controller) ViewStage(ctx context.Context, stage project.Stage) (*View, error) {
	if !stage.Valid() {
		return nil, project.ErrUnknownStage
	}

	c.writeMu.Lock()
	c.mu.Lock()
	unsaved := c.record != nil && c.record.Revision == 0
	c.mu.Unlock()

	var conflict *project.ConflictNotice
	if !unsaved {
		res, err := c.store.Open(ctx, c.projectID)
		if err != nil {
			c.writeMu.Unlock()
			return nil, err
		}
		conflict = res.Conflict
		c.mu.Lock()
		c.record = res.Record.Clone()
		c.mu.Unlock()
	}
	c.writeMu.Unlock()

	c.mu.Lock()
	current := c.record.CurrentStage
	draft := c.draftLocked()
	c.mu.Unlock()

	if current.Before(stage) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrStageLocked, stage, current)
	}

	c.track(EventStageViewed, map[string]any{
		"stage":           string(stage),
		"projectId":       c.projectID,
		"hasExistingData": draft.StageHasContent(stage),
	})
	if conflict != nil {
		c.track(EventConflictDetected, conflict.Properties())
	}

	return &View{Stage: stage, Record: draft, Conflict: conflict}, nil
}

// DebouncedSave merges patch into the pending edit and restarts the save timer.
// It never blocks on I/O.
func (c *Controller) DebouncedSave(patch project.Patch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return ErrNotOpened
	}
	if patch.IsEmpty() {
		return nil
	}
	c.pending = c.pending.Merge(patch)
	c.hasPending = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.after(c.delay, func() { c.fire(gen) })
	return nil
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.flush(ctx); err != nil {
		c.logger.Error("autosave failed", "error", err)
	}
}

// FlushPendingSave writes any pending edit now.
func (c *Controller) FlushPendingSave(ctx context.Context) error {
	return c.flush(ctx)
}

func (c *Controller) flush(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	if c.record == nil || !c.hasPending {
		c.mu.Unlock()
		return nil
	}
	patch := c.pending
	c.pending = project.Patch{}
	c.hasPending = false
	base := c.record
	c.mu.Unlock()

	next := base.Clone()
	patch.Apply(next)
	if project.Diff(base, next).IsEmpty() {
		return nil
	}
	if next.Provisional && !next.HasSubstantiveContent() {
		// Nothing worth a record yet. Keep the edit for the next flush.
		c.restore(patch, nil)
		c.logger.Debug("skipping save of empty draft")
		return nil
	}

	saved, err := c.store.Save(ctx, next)
	if err != nil {
		c.restore(patch, err)
		return &PersistenceError{Op: "save", ProjectID: c.projectID, Err: err}
	}

	c.mu.Lock()
	c.record = saved.Clone()
	c.lastErr = nil
	c.mu.Unlock()
	c.logger.Debug("draft saved", "revision", saved.Revision, "fields", patch.Fields())
	return nil
}

// restore puts a patch that could not be written back underneath any newer edits.
func (c *Controller) restore(patch project.Patch, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = patch.Merge(c.pending)
	c.hasPending = true
	if err != nil {
		c.lastErr = err
	}
}

// CanCompleteStage reports whether the current stage of the draft passes validation.
// On failure ValidationMessage explains what is missing.
func (c *Controller) CanCompleteStage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		c.message = ErrNotOpened.Error()
		return false
	}
	draft := c.draftLocked()
	if verr := c.rules.Validate(draft, draft.CurrentStage); verr != nil {
		c.message = verr.Message
		return false
	}
	c.message = ""
	return true
}

// ValidationMessage returns the message from the last failed completion check.
func (c *Controller) ValidationMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// CompleteStage flushes pending edits, validates the current stage and advances to next.
// An empty next means the stage that follows the current one. Repeating the last transition
// with no edit in between, or completing toward the stage the project is already on,
// succeeds without writing anything.
func (c *Controller) CompleteStage(ctx context.Context, next project.Stage) (*Outcome, error) {
	if err := c.flush(ctx); err != nil {
		return nil, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	rec := c.record
	c.mu.Unlock()
	if rec == nil {
		return nil, ErrNotOpened
	}
	current := rec.CurrentStage

	if last := c.last; last != nil && last.Record.Revision == rec.Revision && (next == "" || next == last.To) {
		return &Outcome{From: last.From, To: last.To, Navigate: true, Repeated: true, Record: rec.Clone()}, nil
	}

	if next == "" {
		following, ok := current.Next()
		if !ok {
			verr := c.rules.Validate(rec, current)
			c.setMessage(verr.Message)
			return nil, verr
		}
		next = following
	}
	if !next.Valid() {
		return nil, project.ErrUnknownStage
	}

	if next == current {
		if idx := current.Index(); idx > 0 && rec.StageStatus.Get(project.Stages[idx-1]) == project.StateComplete {
			return &Outcome{From: project.Stages[idx-1], To: current, Navigate: true, Repeated: true, Record: rec.Clone()}, nil
		}
	}
	if want, ok := current.Next(); !ok || next != want {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, next)
	}

	if verr := c.rules.Validate(rec, current); verr != nil {
		c.setMessage(verr.Message)
		return nil, verr
	}

	updated := rec.Clone()
	updated.StageStatus.Set(current, project.StateComplete)
	updated.StageStatus.Set(next, project.StateInProgress)
	updated.CurrentStage = next
	if next == project.StageReview && updated.CompletedAt == nil {
		t := c.now().UTC()
		updated.CompletedAt = &t
	}

	saved, err := c.store.Save(ctx, updated)
	if err != nil {
		return nil, &PersistenceError{Op: "complete stage", ProjectID: c.projectID, Err: err}
	}

	out := &Outcome{From: current, To: next, Navigate: true, Record: saved.Clone()}

	c.mu.Lock()
	c.record = saved.Clone()
	c.message = ""
	c.last = out
	c.mu.Unlock()

	c.track(EventStageCompleted, map[string]any{
		"stage":     string(current),
		"nextStage": string(next),
		"projectId": c.projectID,
		"revision":  saved.Revision,
	})
	c.logger.Info("stage completed", "stage", current, "next_stage", next, "revision", saved.Revision)

	return &Outcome{From: out.From, To: out.To, Navigate: true, Record: saved.Clone()}, nil
}

// SaveAndContinueLater flushes pending edits and signals the caller to leave the workflow.
// The current stage is unchanged.
func (c *Controller) SaveAndContinueLater(ctx context.Context) (*Outcome, error) {
	if err := c.flush(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.record == nil {
		c.mu.Unlock()
		return nil, ErrNotOpened
	}
	rec := c.draftLocked()
	c.mu.Unlock()

	c.track(EventSaveAndContinueLater, map[string]any{
		"stage":     string(rec.CurrentStage),
		"projectId": c.projectID,
	})
	return &Outcome{From: rec.CurrentStage, To: rec.CurrentStage, Navigate: true, Record: rec}, nil
}

// CurrentDraft returns the committed record with pending edits applied, or nil before ViewStage.
func (c *Controller) CurrentDraft() *project.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return nil
	}
	return c.draftLocked()
}

// Status reports the autosave state.
func (c *Controller) Status() DraftStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := DraftStatus{ProjectID: c.projectID, HasPending: c.hasPending}
	if c.record != nil {
		st.Revision = c.record.Revision
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

// Close writes any pending edit and stops the timer.
func (c *Controller) Close(ctx context.Context) error {
	err := c.flush(ctx)
	var perr *PersistenceError
	if errors.As(err, &perr) {
		c.logger.Warn("pending edit not saved on close", "error", perr.Err)
	}
	return err
}

func (c *Controller) draftLocked() *project.Record {
	draft := c.record.Clone()
	if c.hasPending {
		c.pending.Apply(draft)
	}
	return draft
}

func (c *Controller) setMessage(msg string) {
	c.mu.Lock()
	c.message = msg
	c.mu.Unlock()
}

func (c *Controller) track(name string, props map[string]any) {
	if c.tracker == nil {
		return
	}
	c.tracker.Track(name, props)
}
