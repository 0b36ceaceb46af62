package project_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedClock() project.Option {
	return project.WithClock(func() time.Time { return testNow })
}

func storedRecord(id string, rev int64) *project.Record {
	rec := project.NewRecord(id, "River Study", "", testNow.Add(-time.Hour))
	rec.Revision = rev
	rec.Foundation.CoreConcept = "Water quality shapes community health"
	rec.Provisional = false
	return rec
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	notifier := &mocks.Notifier{}

	repo.On("Commit", ctx, mock.MatchedBy(func(rec *project.Record) bool {
		return rec.Revision == 1 && rec.Title == project.DefaultTitle && rec.Provisional
	}), int64(0)).Return(nil)
	notifier.On("Enqueued", "p1").Return()

	svc := project.NewService(repo, nil, fixedClock(), project.WithNotifier(notifier))
	rec, err := svc.Create(ctx, project.CreateRequest{ID: "p1"})
	require.NoError(t, err)
	require.Equal(t, int64(1), rec.Revision)
	require.Equal(t, project.StageFoundation, rec.CurrentStage)
	require.True(t, rec.Provisional)
	require.Equal(t, testNow, rec.CreatedAt)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestService_NewDraftGeneratesID(t *testing.T) {
	svc := project.NewService(&mocks.ProjectRepository{}, nil, fixedClock())
	rec := svc.NewDraft(project.CreateRequest{Title: "  Soil Lab  "})
	require.NotEmpty(t, rec.ID)
	require.Equal(t, "Soil Lab", rec.Title)
	require.Equal(t, int64(0), rec.Revision)
	require.True(t, rec.Provisional)
}

func TestService_SaveBumpsRevision(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	current := storedRecord("p1", 3)

	repo.On("Get", ctx, "p1").Return(current, nil)
	repo.On("Commit", ctx, mock.Anything, int64(3)).Return(nil)

	svc := project.NewService(repo, nil, fixedClock())
	edit := current.Clone()
	edit.Foundation.Challenge = "Pitch a plan to the council"
	saved, err := svc.Save(ctx, edit)
	require.NoError(t, err)
	require.Equal(t, int64(4), saved.Revision)
	require.Equal(t, testNow, saved.UpdatedAt)
	require.Equal(t, current.CreatedAt, saved.CreatedAt)
	require.Equal(t, int64(3), edit.Revision)
}

func TestService_SaveStaleRevision(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "p1").Return(storedRecord("p1", 5), nil)

	svc := project.NewService(repo, nil)
	_, err := svc.Save(ctx, storedRecord("p1", 4))
	require.ErrorIs(t, err, project.ErrStaleRevision)
	repo.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_SaveMapsCommitConflict(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "p1").Return(storedRecord("p1", 2), nil)
	repo.On("Commit", ctx, mock.Anything, int64(2)).Return(repository.ErrConflict)

	svc := project.NewService(repo, nil)
	_, err := svc.Save(ctx, storedRecord("p1", 2))
	require.ErrorIs(t, err, project.ErrStaleRevision)
}

func TestService_SaveKeepsProvisionalOneWay(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	current := storedRecord("p1", 2)
	repo.On("Get", ctx, "p1").Return(current, nil)
	repo.On("Commit", ctx, mock.Anything, int64(2)).Return(nil)

	svc := project.NewService(repo, nil)
	edit := current.Clone()
	edit.Foundation = project.Foundation{}
	edit.Provisional = true
	saved, err := svc.Save(ctx, edit)
	require.NoError(t, err)
	require.False(t, saved.Provisional)
}

func TestService_SaveRejectsInconsistentStatus(t *testing.T) {
	repo := &mocks.ProjectRepository{}
	svc := project.NewService(repo, nil)
	rec := storedRecord("p1", 0)
	rec.StageStatus.Deliverables = project.StateInProgress

	_, err := svc.Save(context.Background(), rec)
	require.ErrorIs(t, err, project.ErrInconsistentStatus)
}

func TestService_GetNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := project.NewService(repo, nil)
	_, err := svc.Get(ctx, "missing")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestService_OpenWithoutResolver(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "p1").Return(storedRecord("p1", 2), nil)

	svc := project.NewService(repo, nil)
	res, err := svc.Open(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Record.Revision)
	require.Nil(t, res.Conflict)
}

func TestService_OpenResolverFailureFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	resolver := &mocks.Resolver{}
	local := storedRecord("p1", 2)

	repo.On("Get", ctx, "p1").Return(local, nil)
	repo.On("SyncState", ctx, "p1").Return(project.SyncState{Revision: 2}, nil)
	resolver.On("Resolve", ctx, "p1", local, project.SyncState{Revision: 2}).Return(nil, errors.New("unreachable"))

	svc := project.NewService(repo, nil, project.WithResolver(resolver))
	res, err := svc.Open(ctx, "p1")
	require.NoError(t, err)
	require.Same(t, local, res.Record)
}

func TestService_OpenAdoptsRemoteAndReappliesLocalEdits(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	resolver := &mocks.Resolver{}
	notifier := &mocks.Notifier{}

	local := storedRecord("p1", 5)
	local.Foundation.Challenge = "Local challenge"
	remote := storedRecord("p1", 6)
	remote.Structure.Phases = []project.Phase{{Name: "Explore", Activities: []string{"Walk"}}}
	state := project.SyncState{Revision: 4}
	notice := &project.ConflictNotice{
		ProjectID:      "p1",
		ConflictType:   project.ConflictRemoteAhead,
		LocalRevision:  5,
		RemoteRevision: 6,
		Reapplied:      []string{project.FieldChallenge},
	}

	repo.On("Get", ctx, "p1").Return(local, nil).Once()
	repo.On("SyncState", ctx, "p1").Return(state, nil)
	resolver.On("Resolve", ctx, "p1", local, state).Return(&project.Resolution{
		Remote:   remote,
		Reapply:  project.Patch{Challenge: project.String("Local challenge")},
		Conflict: notice,
	}, nil)
	repo.On("Adopt", ctx, mock.MatchedBy(func(rec *project.Record) bool {
		return rec.Revision == 6
	}), int64(5), int64(6)).Return(nil)
	adopted := remote.Clone()
	repo.On("Get", ctx, "p1").Return(adopted, nil).Once()
	repo.On("Commit", ctx, mock.MatchedBy(func(rec *project.Record) bool {
		return rec.Revision == 7 && rec.Foundation.Challenge == "Local challenge" && len(rec.Structure.Phases) == 1
	}), int64(6)).Return(nil)
	notifier.On("Enqueued", "p1").Return()

	svc := project.NewService(repo, nil, fixedClock(), project.WithResolver(resolver), project.WithNotifier(notifier))
	res, err := svc.Open(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(7), res.Record.Revision)
	require.Equal(t, "Explore", res.Record.Structure.Phases[0].Name)
	require.Equal(t, "Local challenge", res.Record.Foundation.Challenge)
	require.NotNil(t, res.Conflict)
	require.Equal(t, int64(7), res.Conflict.AdoptedRevision)
	repo.AssertExpectations(t)
}

func TestService_OpenNeverLowersLocalRevision(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	resolver := &mocks.Resolver{}

	local := storedRecord("p1", 7)
	local.Foundation.CoreConcept = "Local concept"
	remote := storedRecord("p1", 5)
	remote.Foundation.CoreConcept = "Remote concept"
	state := project.SyncState{Revision: 4}
	notice := &project.ConflictNotice{
		ProjectID:      "p1",
		ConflictType:   project.ConflictRemoteAhead,
		LocalRevision:  7,
		SyncedRevision: 4,
		RemoteRevision: 5,
		Overridden:     []string{project.FieldCoreConcept},
	}

	repo.On("Get", ctx, "p1").Return(local, nil).Once()
	repo.On("SyncState", ctx, "p1").Return(state, nil)
	resolver.On("Resolve", ctx, "p1", local, state).Return(&project.Resolution{Remote: remote, Conflict: notice}, nil)
	repo.On("Adopt", ctx, mock.MatchedBy(func(rec *project.Record) bool {
		return rec.Revision == 8 && rec.Foundation.CoreConcept == "Remote concept"
	}), int64(7), int64(5)).Return(nil)

	svc := project.NewService(repo, nil, fixedClock(), project.WithResolver(resolver))
	res, err := svc.Open(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(8), res.Record.Revision)
	require.Equal(t, "Remote concept", res.Record.Foundation.CoreConcept)
	require.Equal(t, int64(8), res.Conflict.AdoptedRevision)
	require.Equal(t, int64(5), remote.Revision)
	repo.AssertExpectations(t)
}

func TestService_OpenAdoptsRemoteWhenLocalMissing(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	resolver := &mocks.Resolver{}
	remote := storedRecord("p1", 3)

	repo.On("Get", ctx, "p1").Return(nil, repository.ErrNotFound)
	repo.On("SyncState", ctx, "p1").Return(project.SyncState{}, repository.ErrNotFound)
	resolver.On("Resolve", ctx, "p1", (*project.Record)(nil), project.SyncState{}).Return(&project.Resolution{Remote: remote}, nil)
	repo.On("Adopt", ctx, mock.Anything, int64(0), int64(3)).Return(nil)

	svc := project.NewService(repo, nil, project.WithResolver(resolver))
	res, err := svc.Open(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Record.Revision)
	require.Nil(t, res.Conflict)
}

func TestService_OpenNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("Get", ctx, "p1").Return(nil, repository.ErrNotFound)

	svc := project.NewService(repo, nil)
	_, err := svc.Open(ctx, "p1")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestService_ListRejectsUnknownStage(t *testing.T) {
	svc := project.NewService(&mocks.ProjectRepository{}, nil)
	_, err := svc.List(context.Background(), project.ListOptions{Stage: "launch"})
	require.ErrorIs(t, err, project.ErrUnknownStage)
}

func TestService_SearchRequiresQuery(t *testing.T) {
	svc := project.NewService(&mocks.ProjectRepository{}, nil)
	_, err := svc.Search(context.Background(), "  ", project.ListOptions{})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}
