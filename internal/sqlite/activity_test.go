package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	entry1 := &activity.Entry{
		ProjectID: "p1",
		Type:      activity.TypeStageViewed,
		Summary:   "viewed foundation",
		Details:   `{"stage":"foundation"}`,
		CreatedAt: testTime,
	}
	entry2 := &activity.Entry{
		ProjectID: "p1",
		Type:      activity.TypeConflictDetected,
		Summary:   "adopted remote revision 6",
		Revision:  7,
		CreatedAt: testTime.Add(time.Second),
	}
	entry3 := &activity.Entry{
		ProjectID: "p2",
		Type:      activity.TypeStageViewed,
		Summary:   "viewed structure",
		CreatedAt: testTime,
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NoError(t, repo.Log(ctx, entry3))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListOptions{ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, activity.TypeConflictDetected, entries[0].Type)
	require.Equal(t, int64(7), entries[0].Revision)
	require.Empty(t, entries[0].Details)
	require.Equal(t, `{"stage":"foundation"}`, entries[1].Details)

	conflicts := activity.TypeConflictDetected
	entries, err = repo.List(ctx, activity.ListOptions{Type: &conflicts})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = repo.List(ctx, activity.ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
