package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository_CommitAndGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	rec := testRecord("p1", 1)
	rec.Structure.Phases = []project.Phase{
		{Name: "Launch", Summary: "Hook", Activities: []string{"Site walk"}, Checkpoint: "Exit ticket"},
	}
	require.NoError(t, repo.Commit(ctx, rec, 0))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestProjectRepository_GetNotFound(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_CommitWritesIndexAndJob(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	rec := testRecord("p1", 1)
	require.NoError(t, repo.Commit(ctx, rec, 0))

	next := rec.Clone()
	next.Revision = 2
	next.Title = "Courtyard Garden"
	require.NoError(t, repo.Commit(ctx, next, 1))

	var title string
	var revision int64
	require.NoError(t, db.QueryRow(`SELECT title, revision FROM project_index WHERE id = 'p1'`).Scan(&title, &revision))
	require.Equal(t, "Courtyard Garden", title)
	require.Equal(t, int64(2), revision)

	var jobs int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sync_jobs WHERE project_id = 'p1' AND status = 'pending'`).Scan(&jobs))
	require.Equal(t, 2, jobs)
}

func TestProjectRepository_CommitStaleRevision(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Commit(ctx, testRecord("p1", 1), 0))
	require.NoError(t, repo.Commit(ctx, testRecord("p1", 2), 1))

	err := repo.Commit(ctx, testRecord("p1", 2), 1)
	require.ErrorIs(t, err, repository.ErrConflict)

	err = repo.Commit(ctx, testRecord("p1", 1), 0)
	require.ErrorIs(t, err, repository.ErrConflict)

	err = repo.Commit(ctx, testRecord("other", 2), 1)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// A failed commit leaves neither index nor queue behind.
	var jobs int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sync_jobs`).Scan(&jobs))
	require.Equal(t, 2, jobs)
}

func TestProjectRepository_AdoptSupersedesPendingJobs(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Commit(ctx, testRecord("p1", 1), 0))
	require.NoError(t, repo.Commit(ctx, testRecord("p1", 2), 1))

	remote := testRecord("p1", 6)
	remote.Title = "Remote Title"
	require.NoError(t, repo.Adopt(ctx, remote, 2, 6))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(6), got.Revision)
	require.Equal(t, "Remote Title", got.Title)

	state, err := repo.SyncState(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(6), state.Revision)
	require.Equal(t, remote, state.Base)

	var pending int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sync_jobs WHERE status = 'pending'`).Scan(&pending))
	require.Zero(t, pending)
}

func TestProjectRepository_AdoptKeepsRemoteAsSyncedRevision(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Commit(ctx, testRecord("p1", 1), 0))
	for rev := int64(2); rev <= 7; rev++ {
		require.NoError(t, repo.Commit(ctx, testRecord("p1", rev), rev-1))
	}

	adopted := testRecord("p1", 8)
	adopted.Title = "Remote Title"
	require.NoError(t, repo.Adopt(ctx, adopted, 7, 5))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(8), got.Revision)

	state, err := repo.SyncState(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(5), state.Revision)
	require.Equal(t, "Remote Title", state.Base.Title)
}

func TestProjectRepository_AdoptNewProject(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Adopt(ctx, testRecord("p9", 4), 0, 4))

	list, err := repo.List(ctx, project.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "p9", list[0].ID)
	require.Equal(t, int64(4), list[0].Revision)
}

func TestProjectRepository_SyncStateNeverSynced(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Commit(ctx, testRecord("p1", 1), 0))

	state, err := repo.SyncState(ctx, "p1")
	require.NoError(t, err)
	require.Zero(t, state.Revision)
	require.Nil(t, state.Base)

	_, err = repo.SyncState(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_List(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	draft := testRecord("draft", 1)
	draft.Provisional = true
	require.NoError(t, repo.Commit(ctx, draft, 0))

	older := testRecord("older", 1)
	require.NoError(t, repo.Commit(ctx, older, 0))

	newer := testRecord("newer", 1)
	newer.UpdatedAt = testTime.Add(time.Hour)
	newer.CurrentStage = project.StageStructure
	newer.StageStatus.Foundation = project.StateComplete
	newer.StageStatus.Structure = project.StateInProgress
	require.NoError(t, repo.Commit(ctx, newer, 0))

	list, err := repo.List(ctx, project.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "newer", list[0].ID)
	require.Equal(t, project.StageStructure, list[0].CurrentStage)
	require.Equal(t, project.StateComplete, list[0].StageStatus.Foundation)
	require.True(t, newer.UpdatedAt.Equal(list[0].UpdatedAt))

	list, err = repo.List(ctx, project.ListOptions{IncludeProvisional: true})
	require.NoError(t, err)
	require.Len(t, list, 3)

	list, err = repo.List(ctx, project.ListOptions{Stage: project.StageStructure})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = repo.List(ctx, project.ListOptions{IncludeProvisional: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSearchRepository_Search(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	search := NewSearchRepository(db)
	ctx := context.Background()

	rec := testRecord("p1", 1)
	require.NoError(t, repo.Commit(ctx, rec, 0))

	results, err := search.Search(ctx, "courtyard garden", project.ListOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "p1", results[0].ID)

	// The index follows updates.
	next := rec.Clone()
	next.Revision = 2
	next.Foundation.Challenge = "Build a rain barrel"
	require.NoError(t, repo.Commit(ctx, next, 1))

	results, err = search.Search(ctx, "courtyard", project.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = search.Search(ctx, "rain", project.ListOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
