package stage_test

import (
	"context"
	"sync"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/stage"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	records  map[string]*project.Record
	saves    []*project.Record
	failSave error
	conflict *project.ConflictNotice
}

func newFakeStore(recs ...*project.Record) *fakeStore {
	s := &fakeStore{records: make(map[string]*project.Record)}
	for _, rec := range recs {
		s.records[rec.ID] = rec.Clone()
	}
	return s
}

func (s *fakeStore) NewDraft(req project.CreateRequest) *project.Record {
	id := req.ID
	if id == "" {
		id = "draft-1"
	}
	return project.NewRecord(id, req.Title, req.Description, testNow)
}

func (s *fakeStore) Open(_ context.Context, id string) (*project.OpenResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	return &project.OpenResult{Record: rec.Clone(), Conflict: s.conflict}, nil
}

func (s *fakeStore) Save(_ context.Context, rec *project.Record) (*project.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return nil, s.failSave
	}
	next := rec.Clone()
	next.Revision++
	next.SettleProvisional()
	s.records[next.ID] = next
	s.saves = append(s.saves, next.Clone())
	return next.Clone(), nil
}

func (s *fakeStore) saved() []*project.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*project.Record(nil), s.saves...)
}

func (s *fakeStore) setFailure(err error) {
	s.mu.Lock()
	s.failSave = err
	s.mu.Unlock()
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, f func()) stage.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

// fireAll runs every scheduled callback, including stopped ones, the way a
// timer that fired just before Stop would.
func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	timers := append([]*fakeTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		t.f()
	}
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

type event struct {
	name  string
	props map[string]any
}

type fakeTracker struct {
	mu     sync.Mutex
	events []event
}

func (t *fakeTracker) Track(name string, props map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event{name: name, props: props})
}

func (t *fakeTracker) named(name string) []event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []event
	for _, e := range t.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func storedRecord(id string) *project.Record {
	rec := project.NewRecord(id, "River Study", "", testNow)
	rec.Revision = 1
	return rec
}

func completeFoundation(rec *project.Record) {
	rec.Foundation = project.Foundation{
		CoreConcept:     "Water quality shapes community health",
		DrivingQuestion: "How can we keep our river safe to swim in?",
		Challenge:       "Design a monitoring plan for the town council",
	}
	rec.Provisional = false
}

func phases(n int) []project.Phase {
	out := make([]project.Phase, n)
	for i := range out {
		out[i] = project.Phase{
			Name:       "Phase " + string(rune('A'+i)),
			Activities: []string{"Field sampling walk"},
		}
	}
	return out
}

func newController(store *fakeStore, sched *fakeScheduler, tracker *fakeTracker, id string) *stage.Controller {
	return stage.NewController(id, store, tracker, nil,
		stage.WithAfterFunc(sched.AfterFunc),
		stage.WithClock(func() time.Time { return testNow }),
	)
}
