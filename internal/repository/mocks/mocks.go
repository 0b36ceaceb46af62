package mocks

import (
	"context"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/activity"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*project.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Commit(ctx context.Context, rec *project.Record, expectedRevision int64) error {
	args := m.Called(ctx, rec, expectedRevision)
	return args.Error(0)
}

func (m *ProjectRepository) Adopt(ctx context.Context, rec *project.Record, expectedRevision, syncedRevision int64) error {
	args := m.Called(ctx, rec, expectedRevision, syncedRevision)
	return args.Error(0)
}

func (m *ProjectRepository) SyncState(ctx context.Context, id string) (project.SyncState, error) {
	args := m.Called(ctx, id)
	state, _ := args.Get(0).(project.SyncState)
	return state, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]project.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Resolver is a mock for project.Resolver.
type Resolver struct {
	mock.Mock
}

func (m *Resolver) Resolve(ctx context.Context, id string, local *project.Record, state project.SyncState) (*project.Resolution, error) {
	args := m.Called(ctx, id, local, state)
	if res, ok := args.Get(0).(*project.Resolution); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier is a mock for project.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Enqueued(projectID string) {
	m.Called(projectID)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// JobRepository is a mock for cloudsync.JobRepository.
type JobRepository struct {
	mock.Mock
}

func (m *JobRepository) NextPending(ctx context.Context, projectID string) (*cloudsync.Job, error) {
	args := m.Called(ctx, projectID)
	if job, ok := args.Get(0).(*cloudsync.Job); ok {
		return job, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *JobRepository) PendingProjects(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *JobRepository) MarkSynced(ctx context.Context, job *cloudsync.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *JobRepository) RecordAttempt(ctx context.Context, jobID string, attempts int, lastErr string) error {
	args := m.Called(ctx, jobID, attempts, lastErr)
	return args.Error(0)
}

func (m *JobRepository) DeadLetter(ctx context.Context, jobID string, attempts int, reason string) error {
	args := m.Called(ctx, jobID, attempts, reason)
	return args.Error(0)
}

func (m *JobRepository) DeadLetters(ctx context.Context, projectID string) ([]cloudsync.Job, error) {
	args := m.Called(ctx, projectID)
	if jobs, ok := args.Get(0).([]cloudsync.Job); ok {
		return jobs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *JobRepository) Requeue(ctx context.Context, projectID string) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *JobRepository) Counts(ctx context.Context, projectID string) (cloudsync.Counts, error) {
	args := m.Called(ctx, projectID)
	counts, _ := args.Get(0).(cloudsync.Counts)
	return counts, args.Error(1)
}

// Remote is a mock for cloudsync.Remote.
type Remote struct {
	mock.Mock
}

func (m *Remote) Fetch(ctx context.Context, id string) (*project.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*project.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Remote) Push(ctx context.Context, rec *project.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
