package stage

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

// Manager hands out one Controller per project.
type Manager struct {
	store   Store
	tracker Tracker
	logger  *slog.Logger
	opts    []Option

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewManager creates a Manager. opts apply to every controller it creates.
func NewManager(store Store, tracker Tracker, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:       store,
		tracker:     tracker,
		logger:      logger,
		opts:        opts,
		controllers: make(map[string]*Controller),
	}
}

// Create starts an unsaved draft project. It is written once it holds real content.
func (m *Manager) Create(req project.CreateRequest) *Controller {
	draft := m.store.NewDraft(req)
	c := m.Controller(draft.ID)
	c.bindDraft(draft)
	m.logger.Info("draft project created", "project_id", draft.ID)
	return c
}

// Controller returns the controller for projectID, creating it if needed.
func (m *Manager) Controller(projectID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.controllers[projectID]; ok {
		return c
	}
	c := NewController(projectID, m.store, m.tracker, m.logger, m.opts...)
	m.controllers[projectID] = c
	return c
}

// Lookup returns the controller for projectID if one exists.
func (m *Manager) Lookup(projectID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[projectID]
	return c, ok
}

// Release flushes and forgets the controller for projectID.
func (m *Manager) Release(ctx context.Context, projectID string) error {
	m.mu.Lock()
	c, ok := m.controllers[projectID]
	delete(m.controllers, projectID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return c.Close(ctx)
}

// FlushAll writes pending edits for every project.
func (m *Manager) FlushAll(ctx context.Context) error {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		controllers = append(controllers, c)
	}
	m.mu.Unlock()

	var errs []error
	for _, c := range controllers {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
