package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
)

// Adapter delivers queued local writes to the remote store. Each project gets a
// single worker so jobs are delivered in enqueue order.
type Adapter struct {
	jobs    JobRepository
	remote  Remote
	cfg     Config
	logger  *slog.Logger
	tracker Tracker

	online atomic.Bool

	mu      sync.Mutex
	workers map[string]*worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type worker struct {
	mu      sync.Mutex
	wake    chan struct{}
	running bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTracker reports dead-lettered jobs as telemetry.
func WithTracker(t Tracker) Option {
	return func(a *Adapter) { a.tracker = t }
}

// WithOnline sets the initial connectivity state. Adapters start online.
func WithOnline(online bool) Option {
	return func(a *Adapter) { a.online.Store(online) }
}

// New creates a sync adapter. Call Start to begin background delivery.
func New(jobs JobRepository, remote Remote, cfg Config, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = max(def.MaxInterval, cfg.InitialInterval)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	a := &Adapter{
		jobs:    jobs,
		remote:  remote,
		cfg:     cfg,
		logger:  logger,
		workers: make(map[string]*worker),
	}
	a.online.Store(true)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches workers for every project whose queue survived a restart.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	if !a.Online() {
		a.logger.Info("sync adapter started offline")
		return nil
	}
	return a.drainAll(ctx)
}

// Close stops all workers and waits for in-flight deliveries to return.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()
	a.wg.Wait()
}

// Online reports the last connectivity signal.
func (a *Adapter) Online() bool {
	return a.online.Load()
}

// SetOnline records a connectivity signal. Regaining connectivity drains every queue.
func (a *Adapter) SetOnline(online bool) {
	was := a.online.Swap(online)
	if was == online {
		return
	}
	a.logger.Info("connectivity changed", "online", online)
	if online {
		a.mu.Lock()
		ctx := a.ctx
		a.mu.Unlock()
		if ctx == nil {
			return
		}
		if err := a.drainAll(ctx); err != nil {
			a.logger.Warn("draining sync queue failed", "error", err)
		}
	}
}

// Enqueued wakes the worker of a project after a local commit.
func (a *Adapter) Enqueued(projectID string) {
	if a.Online() {
		a.wake(projectID)
	}
}

// Drain delivers every pending job of a project in order. It returns early, leaving
// jobs pending, when connectivity drops or ctx ends.
func (a *Adapter) Drain(ctx context.Context, projectID string) error {
	w := a.worker(projectID)
	w.mu.Lock()
	defer w.mu.Unlock()

	for a.Online() {
		job, err := a.jobs.NextPending(ctx, projectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("loading next sync job for %s: %w", projectID, err)
		}
		if err := a.deliver(ctx, job); err != nil {
			if errors.Is(err, ErrOffline) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Status reports the observable sync state of a project.
func (a *Adapter) Status(ctx context.Context, projectID string) (Status, error) {
	counts, err := a.jobs.Counts(ctx, projectID)
	if err != nil {
		return Status{}, fmt.Errorf("counting sync jobs for %s: %w", projectID, err)
	}
	st := Status{
		ProjectID:          projectID,
		State:              StateIdle,
		Pending:            counts.Pending,
		DeadLetters:        counts.Dead,
		LastError:          counts.LastError,
		LastSyncedRevision: counts.LastSyncedRevision,
		Online:             a.Online(),
	}
	switch {
	case counts.Dead > 0:
		st.State = StateFailed
	case counts.Pending > 0:
		st.State = StatePending
	}
	return st, nil
}

// DeadLetters lists jobs awaiting manual retry.
func (a *Adapter) DeadLetters(ctx context.Context, projectID string) ([]Job, error) {
	jobs, err := a.jobs.DeadLetters(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing dead letters for %s: %w", projectID, err)
	}
	return jobs, nil
}

// RetryDeadLetters moves dead-lettered jobs back into the queue with a fresh attempt budget.
func (a *Adapter) RetryDeadLetters(ctx context.Context, projectID string) (int, error) {
	n, err := a.jobs.Requeue(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("requeueing dead letters for %s: %w", projectID, err)
	}
	if n > 0 {
		a.logger.Info("dead letters requeued", "project_id", projectID, "count", n)
		a.Enqueued(projectID)
	}
	return n, nil
}

func (a *Adapter) drainAll(ctx context.Context) error {
	ids, err := a.jobs.PendingProjects(ctx)
	if err != nil {
		return fmt.Errorf("listing pending projects: %w", err)
	}
	for _, id := range ids {
		a.wake(id)
	}
	return nil
}

func (a *Adapter) worker(projectID string) *worker {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workerLocked(projectID)
}

func (a *Adapter) workerLocked(projectID string) *worker {
	w, ok := a.workers[projectID]
	if !ok {
		w = &worker{wake: make(chan struct{}, 1)}
		a.workers[projectID] = w
	}
	return w
}

func (a *Adapter) wake(projectID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil || a.ctx.Err() != nil {
		return
	}
	w := a.workerLocked(projectID)
	if !w.running {
		w.running = true
		a.wg.Add(1)
		go a.run(a.ctx, projectID, w)
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (a *Adapter) run(ctx context.Context, projectID string, w *worker) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}
		if err := a.Drain(ctx, projectID); err != nil && ctx.Err() == nil {
			a.logger.Warn("sync worker failed", "project_id", projectID, "error", err)
		}
	}
}

func (a *Adapter) deliver(ctx context.Context, job *Job) error {
	remaining := a.cfg.MaxAttempts - job.Attempts
	if remaining <= 0 {
		return a.deadLetter(ctx, job, job.Attempts, errors.New("retry ceiling reached"))
	}

	attempts := job.Attempts
	op := func() error {
		if !a.Online() {
			return backoff.Permanent(ErrOffline)
		}
		attempts++
		pctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
		defer cancel()
		err := a.remote.Push(pctx, job.Payload)
		if err != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		a.logger.Warn("sync attempt failed",
			"project_id", job.ProjectID,
			"job_id", job.ID,
			"attempt", attempts,
			"retry_in", wait,
			"error", err,
		)
		if rerr := a.jobs.RecordAttempt(ctx, job.ID, attempts, err.Error()); rerr != nil {
			a.logger.Warn("recording sync attempt failed", "job_id", job.ID, "error", rerr)
		}
	}

	err := backoff.RetryNotify(op, a.policy(ctx, remaining), notify)
	switch {
	case err == nil:
		if err := a.jobs.MarkSynced(ctx, job); err != nil {
			return fmt.Errorf("marking job %s synced: %w", job.ID, err)
		}
		a.logger.Debug("sync job delivered", "project_id", job.ProjectID, "job_id", job.ID, "revision", job.Revision)
		return nil
	case errors.Is(err, ErrOffline):
		return ErrOffline
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return a.deadLetter(ctx, job, attempts, err)
	}
}

func (a *Adapter) policy(ctx context.Context, attempts int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = a.cfg.InitialInterval
	exp.MaxInterval = a.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

func (a *Adapter) deadLetter(ctx context.Context, job *Job, attempts int, cause error) error {
	serr := &SyncError{
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		Revision:  job.Revision,
		Attempts:  attempts,
		Err:       cause,
	}
	if err := a.jobs.DeadLetter(ctx, job.ID, attempts, serr.Error()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Superseded by an adopted remote revision while the push was failing.
			a.logger.Debug("sync job overtaken before dead-lettering", "project_id", job.ProjectID, "job_id", job.ID)
			return nil
		}
		return fmt.Errorf("dead-lettering job %s: %w", job.ID, err)
	}
	a.logger.Error("sync job moved to dead-letter list",
		"project_id", job.ProjectID,
		"job_id", job.ID,
		"revision", job.Revision,
		"attempt", attempts,
		"error", cause,
	)
	if a.tracker != nil {
		a.tracker.Track("sync_dead_lettered", map[string]any{
			"projectId": job.ProjectID,
			"revision":  job.Revision,
			"attempts":  attempts,
			"error":     cause.Error(),
		})
	}
	return nil
}
