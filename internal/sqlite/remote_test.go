package sqlite

import (
	"context"
	"testing"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestRemoteRepository_PutMerge(t *testing.T) {
	db := NewTestDB(t)
	repo := NewRemoteRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "owner1", "p1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	rec := testRecord("p1", 3)
	require.NoError(t, repo.Put(ctx, "owner1", rec))

	// Redelivery of the same revision is a no-op.
	require.NoError(t, repo.Put(ctx, "owner1", rec))

	diverged := testRecord("p1", 3)
	diverged.Title = "Other device"
	require.ErrorIs(t, repo.Put(ctx, "owner1", diverged), repository.ErrConflict)
	require.ErrorIs(t, repo.Put(ctx, "owner1", testRecord("p1", 2)), repository.ErrConflict)

	newer := testRecord("p1", 4)
	newer.Title = "Newer"
	require.NoError(t, repo.Put(ctx, "owner1", newer))

	got, err := repo.Get(ctx, "owner1", "p1")
	require.NoError(t, err)
	require.Equal(t, newer, got)

	_, err = repo.Get(ctx, "owner2", "p1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAPIKeyRepository(t *testing.T) {
	db := NewTestDB(t)
	repo := NewAPIKeyRepository(db)
	ctx := context.Background()

	token, err := repo.Create(ctx, "owner1", "laptop")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	owner, err := repo.ResolveOwner(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "owner1", owner)

	require.NoError(t, repo.Register(ctx, "owner2", "static-token", "config"))
	require.NoError(t, repo.Register(ctx, "owner2", "static-token", "config"))
	owner, err = repo.ResolveOwner(ctx, "static-token")
	require.NoError(t, err)
	require.Equal(t, "owner2", owner)

	_, err = repo.ResolveOwner(ctx, "unknown")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Create(ctx, " ", "")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}
