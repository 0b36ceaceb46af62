package microflow

import (
	"log/slog"
	"sync"
)

type sessionKey struct {
	projectID string
	kind      Kind
}

// Sessions keeps one engine per project and kind. Engine state is transient and is
// dropped when the user leaves or completes the stage.
type Sessions struct {
	gen    Generator
	logger *slog.Logger
	opts   []Option

	mu      sync.Mutex
	engines map[sessionKey]*Engine
}

// NewSessions creates an empty registry. opts apply to every engine it creates.
func NewSessions(gen Generator, logger *slog.Logger, opts ...Option) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		gen:     gen,
		logger:  logger,
		opts:    opts,
		engines: make(map[sessionKey]*Engine),
	}
}

// Engine returns the engine for projectID and kind, creating it with sink if needed.
func (s *Sessions) Engine(projectID string, kind Kind, sink Sink) *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{projectID: projectID, kind: kind}
	if e, ok := s.engines[key]; ok {
		return e
	}
	e := NewEngine(kind, s.gen, sink, s.logger.With("project_id", projectID), s.opts...)
	s.engines[key] = e
	return e
}

// Lookup returns an existing engine.
func (s *Sessions) Lookup(projectID string, kind Kind) (*Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[sessionKey{projectID: projectID, kind: kind}]
	return e, ok
}

// Discard resets and forgets every engine of projectID.
func (s *Sessions) Discard(projectID string) {
	s.mu.Lock()
	var dropped []*Engine
	for key, e := range s.engines {
		if key.projectID == projectID {
			dropped = append(dropped, e)
			delete(s.engines, key)
		}
	}
	s.mu.Unlock()
	for _, e := range dropped {
		e.Reset()
	}
}
