package cloudsync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func syncedBase() *project.Record {
	base := record("p1", 4)
	base.Foundation = project.Foundation{
		CoreConcept:     "Water quality shapes community health",
		DrivingQuestion: "How can we keep our river safe?",
		Challenge:       "Original challenge text",
	}
	return base
}

func TestResolve_RemoteAheadReappliesLocalOnlyEdits(t *testing.T) {
	base := syncedBase()
	local := base.Clone()
	local.Revision = 5
	local.Foundation.Challenge = "Local challenge text"

	remoteRec := base.Clone()
	remoteRec.Revision = 6
	remoteRec.Structure.Phases = []project.Phase{{Name: "Explore", Activities: []string{"River walk"}}}

	remote := newFakeRemote()
	remote.records["p1"] = remoteRec
	a := cloudsync.New(newMemJobs(), remote, testConfig(3), nil)

	res, err := a.Resolve(context.Background(), "p1", local, project.SyncState{Revision: 4, Base: base})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, int64(6), res.Remote.Revision)
	require.Equal(t, []string{project.FieldChallenge}, res.Reapply.Fields())
	require.Equal(t, "Local challenge text", *res.Reapply.Challenge)

	require.NotNil(t, res.Conflict)
	require.Equal(t, project.ConflictRemoteAhead, res.Conflict.ConflictType)
	require.Equal(t, int64(5), res.Conflict.LocalRevision)
	require.Equal(t, int64(4), res.Conflict.SyncedRevision)
	require.Equal(t, int64(6), res.Conflict.RemoteRevision)
	require.Empty(t, res.Conflict.Overridden)
	require.Contains(t, res.Conflict.Message, "revision 6")
}

func TestResolve_BothSidesEditedRemoteWins(t *testing.T) {
	base := syncedBase()
	local := base.Clone()
	local.Revision = 5
	local.Foundation.Challenge = "Local challenge text"

	remoteRec := base.Clone()
	remoteRec.Revision = 6
	remoteRec.Foundation.Challenge = "Remote challenge text"

	remote := newFakeRemote()
	remote.records["p1"] = remoteRec
	a := cloudsync.New(newMemJobs(), remote, testConfig(3), nil)

	res, err := a.Resolve(context.Background(), "p1", local, project.SyncState{Revision: 4, Base: base})
	require.NoError(t, err)
	require.True(t, res.Reapply.IsEmpty())
	require.Equal(t, []string{project.FieldChallenge}, res.Conflict.Overridden)
	require.Equal(t, "Remote challenge text", res.Remote.Foundation.Challenge)
}

func TestResolve_RemoteNotAhead(t *testing.T) {
	remote := newFakeRemote()
	remote.records["p1"] = record("p1", 4)
	a := cloudsync.New(newMemJobs(), remote, testConfig(3), nil)

	res, err := a.Resolve(context.Background(), "p1", record("p1", 5), project.SyncState{Revision: 4})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestResolve_RemoteMissing(t *testing.T) {
	a := cloudsync.New(newMemJobs(), newFakeRemote(), testConfig(3), nil)
	res, err := a.Resolve(context.Background(), "p1", record("p1", 1), project.SyncState{})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestResolve_LocalMissingAdoptsRemote(t *testing.T) {
	remote := newFakeRemote()
	remote.records["p1"] = record("p1", 3)
	a := cloudsync.New(newMemJobs(), remote, testConfig(3), nil)

	res, err := a.Resolve(context.Background(), "p1", nil, project.SyncState{})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Remote.Revision)
	require.Nil(t, res.Conflict)
}

func TestResolve_OfflineSkipsFetch(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchErr = errors.New("should not be called")
	a := cloudsync.New(newMemJobs(), remote, testConfig(3), nil, cloudsync.WithOnline(false))

	res, err := a.Resolve(context.Background(), "p1", record("p1", 1), project.SyncState{})
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestResolve_FetchFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchErr = errUnavailable
	a := cloudsync.New(newMemJobs(), remote, testConfig(3), nil)

	_, err := a.Resolve(context.Background(), "p1", record("p1", 1), project.SyncState{})
	var serr *cloudsync.SyncError
	require.ErrorAs(t, err, &serr)
	require.ErrorIs(t, err, errUnavailable)
}
