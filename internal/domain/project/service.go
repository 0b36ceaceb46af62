package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
)

// Service is the local-first record store. It is the only place revisions are assigned.
type Service struct {
	repo     Repository
	search   Searcher
	resolver Resolver
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	locks sync.Map
}

// NewService creates a new record store service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	ID          string
	Title       string
	Description string
}

// NewDraft returns an unsaved provisional record. It is written on its first substantive save.
func (s *Service) NewDraft(req CreateRequest) *Record {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return NewRecord(id, strings.TrimSpace(req.Title), strings.TrimSpace(req.Description), s.now().UTC())
}

// Create persists a new provisional record immediately.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	return s.Save(ctx, s.NewDraft(req))
}

// Get loads the local copy of a record.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return rec, nil
}

// Save commits rec as the next revision. rec.Revision must be the revision the edit was based on.
func (s *Service) Save(ctx context.Context, rec *Record) (*Record, error) {
	if rec == nil || strings.TrimSpace(rec.ID) == "" {
		return nil, ErrInvalidInput
	}
	unlock := s.lock(rec.ID)
	defer unlock()
	return s.save(ctx, rec)
}

func (s *Service) save(ctx context.Context, rec *Record) (*Record, error) {
	next := rec.Clone()
	if err := next.CheckConsistency(); err != nil {
		return nil, fmt.Errorf("saving project %s: %w", rec.ID, err)
	}

	expected := rec.Revision
	if expected > 0 {
		current, err := s.repo.Get(ctx, rec.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, fmt.Errorf("loading project %s: %w", rec.ID, err)
		}
		if current.Revision != expected {
			return nil, ErrStaleRevision
		}
		if !current.Provisional {
			next.Provisional = false
		}
		next.CreatedAt = current.CreatedAt
	}

	now := s.now().UTC()
	next.Revision = expected + 1
	next.UpdatedAt = now
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	if strings.TrimSpace(next.Title) == "" {
		next.Title = DefaultTitle
	}
	next.SettleProvisional()

	if err := s.repo.Commit(ctx, next, expected); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrStaleRevision
		}
		return nil, fmt.Errorf("committing project %s: %w", rec.ID, err)
	}

	s.logger.Debug("project committed",
		"project_id", next.ID,
		"revision", next.Revision,
		"stage", next.CurrentStage,
	)

	if s.notifier != nil {
		s.notifier.Enqueued(next.ID)
	}
	return next, nil
}

// Open resolves the authoritative revision (remote first, local fallback) and loads it.
func (s *Service) Open(ctx context.Context, id string) (*OpenResult, error) {
	unlock := s.lock(id)
	defer unlock()

	local, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("loading project %s: %w", id, err)
		}
		local = nil
	}

	if s.resolver == nil {
		return localResult(local)
	}

	state, err := s.repo.SyncState(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loading sync state for %s: %w", id, err)
	}

	res, err := s.resolver.Resolve(ctx, id, local, state)
	if err != nil {
		s.logger.Warn("remote resolution failed, using local copy", "project_id", id, "error", err)
		return localResult(local)
	}
	if res == nil || res.Remote == nil {
		return localResult(local)
	}

	var expected int64
	adopted := res.Remote.Clone()
	if local != nil {
		expected = local.Revision
		if !local.Provisional {
			adopted.Provisional = false
		}
		// Local revisions never go backwards, even when the remote numbering is behind.
		if adopted.Revision <= local.Revision {
			adopted.Revision = local.Revision + 1
		}
	}
	adopted.SettleProvisional()

	if err := s.repo.Adopt(ctx, adopted, expected, res.Remote.Revision); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrStaleRevision
		}
		return nil, fmt.Errorf("adopting remote revision for %s: %w", id, err)
	}

	result := &OpenResult{Record: adopted, Conflict: res.Conflict}
	if !res.Reapply.IsEmpty() {
		next := adopted.Clone()
		res.Reapply.Apply(next)
		saved, err := s.save(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("reapplying local edits for %s: %w", id, err)
		}
		result.Record = saved
	}
	if result.Conflict != nil {
		result.Conflict.AdoptedRevision = result.Record.Revision
	}

	s.logger.Info("adopted remote revision",
		"project_id", id,
		"remote_revision", res.Remote.Revision,
		"revision", result.Record.Revision,
	)
	return result, nil
}

func localResult(local *Record) (*OpenResult, error) {
	if local == nil {
		return nil, ErrProjectNotFound
	}
	return &OpenResult{Record: local}, nil
}

// List returns metadata index entries without loading full records.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	if opts.Stage != "" && !opts.Stage.Valid() {
		return nil, ErrUnknownStage
	}
	summaries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return summaries, nil
}

// Search runs a full-text query over titles, descriptions and foundations.
func (s *Service) Search(ctx context.Context, query string, opts ListOptions) ([]Summary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	if s.search == nil {
		return nil, errors.New("search not configured")
	}
	summaries, err := s.search.Search(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("searching projects: %w", err)
	}
	return summaries, nil
}

func (s *Service) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
