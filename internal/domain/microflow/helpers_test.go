package microflow_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/microflow"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []microflow.Request
	result   *microflow.Suggestion
	err      error
	block    chan struct{}
	finished bool
}

func (g *fakeGenerator) Generate(ctx context.Context, req microflow.Request) (*microflow.Suggestion, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	block := g.block
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.finished = true
		g.mu.Unlock()
	}()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.result, g.err
}

func (g *fakeGenerator) done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finished
}

func (g *fakeGenerator) lastRequest() microflow.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type fakeSink struct {
	mu      sync.Mutex
	draft   *project.Record
	patches []project.Patch
	err     error
}

func testNow() time.Time {
	return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func newFakeSink() *fakeSink {
	rec := project.NewRecord("p1", "River Study", "", testNow())
	rec.Foundation = project.Foundation{
		CoreConcept:     "Water quality shapes community health",
		DrivingQuestion: "How can we keep our river safe to swim in?",
		Challenge:       "Design a monitoring plan for the town council",
	}
	return &fakeSink{draft: rec}
}

func (s *fakeSink) DebouncedSave(p project.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.patches = append(s.patches, p)
	p.Apply(s.draft)
	return nil
}

func (s *fakeSink) CurrentDraft() *project.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

func (s *fakeSink) saved() []project.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]project.Patch(nil), s.patches...)
}

type nilSink struct{}

func (nilSink) DebouncedSave(project.Patch) error { return errors.New("not open") }
func (nilSink) CurrentDraft() *project.Record     { return nil }

type fakeTracker struct {
	mu     sync.Mutex
	events map[string][]map[string]any
}

func (t *fakeTracker) Track(name string, props map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.events == nil {
		t.events = make(map[string][]map[string]any)
	}
	t.events[name] = append(t.events[name], props)
}

func (t *fakeTracker) named(name string) []map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events[name]
}

func threePhases() *microflow.Suggestion {
	return &microflow.Suggestion{
		Phases: []project.Phase{
			{Name: "Explore", Activities: []string{"River walk"}},
			{Name: "Investigate", Activities: []string{"Water sampling"}},
			{Name: "Share", Activities: []string{"Council pitch"}},
		},
	}
}
