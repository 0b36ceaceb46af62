package cloudsync_test

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testConfig(maxAttempts int) cloudsync.Config {
	return cloudsync.Config{
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		RequestTimeout:  time.Second,
	}
}

func record(id string, rev int64) *project.Record {
	rec := project.NewRecord(id, "River Study", "", testNow)
	rec.Revision = rev
	return rec
}

// memJobs is an in-memory JobRepository with the same ordering rules as the sqlite one.
type memJobs struct {
	mu     sync.Mutex
	seq    int64
	jobs   []*cloudsync.Job
	synced map[string]int64
}

func newMemJobs() *memJobs {
	return &memJobs{synced: make(map[string]int64)}
}

func (m *memJobs) add(rec *project.Record) *cloudsync.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	job := &cloudsync.Job{
		ID:        "job-" + strconv.FormatInt(m.seq, 10),
		Seq:       m.seq,
		ProjectID: rec.ID,
		Revision:  rec.Revision,
		Payload:   rec.Clone(),
		Status:    cloudsync.JobPending,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	m.jobs = append(m.jobs, job)
	return job
}

func (m *memJobs) find(id string) *cloudsync.Job {
	for _, j := range m.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (m *memJobs) job(id string) cloudsync.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.find(id)
}

func (m *memJobs) NextPending(_ context.Context, projectID string) (*cloudsync.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ProjectID == projectID && j.Status == cloudsync.JobPending {
			c := *j
			c.Payload = j.Payload.Clone()
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memJobs) PendingProjects(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, j := range m.jobs {
		if j.Status == cloudsync.JobPending && !seen[j.ProjectID] {
			seen[j.ProjectID] = true
			ids = append(ids, j.ProjectID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memJobs) MarkSynced(_ context.Context, job *cloudsync.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.find(job.ID)
	if j == nil || j.Status != cloudsync.JobPending {
		return nil
	}
	j.Status = cloudsync.JobSynced
	if job.Revision > m.synced[job.ProjectID] {
		m.synced[job.ProjectID] = job.Revision
	}
	return nil
}

func (m *memJobs) RecordAttempt(_ context.Context, jobID string, attempts int, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j := m.find(jobID); j != nil {
		j.Attempts = attempts
		j.LastError = lastErr
	}
	return nil
}

func (m *memJobs) DeadLetter(_ context.Context, jobID string, attempts int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.find(jobID)
	if j == nil || j.Status != cloudsync.JobPending {
		return repository.ErrNotFound
	}
	j.Status = cloudsync.JobDead
	j.Attempts = attempts
	j.LastError = reason
	return nil
}

// supersede mimics a remote revision being adopted locally.
func (m *memJobs) supersede(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ProjectID == projectID && j.Status == cloudsync.JobPending {
			j.Status = cloudsync.JobSuperseded
		}
	}
}

func (m *memJobs) DeadLetters(_ context.Context, projectID string) ([]cloudsync.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []cloudsync.Job
	for _, j := range m.jobs {
		if j.ProjectID == projectID && j.Status == cloudsync.JobDead {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memJobs) Requeue(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.ProjectID != projectID || j.Status != cloudsync.JobDead {
			continue
		}
		if j.Revision <= m.synced[projectID] {
			j.Status = cloudsync.JobSuperseded
			continue
		}
		j.Status = cloudsync.JobPending
		j.Attempts = 0
		j.LastError = ""
		n++
	}
	return n, nil
}

func (m *memJobs) Counts(_ context.Context, projectID string) (cloudsync.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloudsync.Counts{LastSyncedRevision: m.synced[projectID]}
	for _, j := range m.jobs {
		if j.ProjectID != projectID {
			continue
		}
		switch j.Status {
		case cloudsync.JobPending:
			c.Pending++
		case cloudsync.JobDead:
			c.Dead++
			c.LastError = j.LastError
		}
	}
	return c, nil
}

type fakeRemote struct {
	mu       sync.Mutex
	pushed   []int64
	calls    int
	fail     func(rec *project.Record, call int) error
	records  map[string]*project.Record
	fetchErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string]*project.Record)}
}

func (r *fakeRemote) Fetch(_ context.Context, id string) (*project.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	rec, ok := r.records[id]
	if !ok {
		return nil, cloudsync.ErrRemoteNotFound
	}
	return rec.Clone(), nil
}

func (r *fakeRemote) Push(_ context.Context, rec *project.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail != nil {
		if err := r.fail(rec, r.calls); err != nil {
			return err
		}
	}
	r.pushed = append(r.pushed, rec.Revision)
	r.records[rec.ID] = rec.Clone()
	return nil
}

func (r *fakeRemote) pushedRevisions() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.pushed...)
}

func (r *fakeRemote) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeTracker struct {
	mu     sync.Mutex
	events []string
	props  []map[string]any
}

func (t *fakeTracker) Track(name string, props map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, name)
	t.props = append(t.props, props)
}

func (t *fakeTracker) names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}
