package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/remote"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/sqlite"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/transport"
	"github.com/stretchr/testify/require"
)

func newRemoteStore(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	keys := sqlite.NewAPIKeyRepository(db)
	token, err := keys.Create(context.Background(), "owner1", "test")
	require.NoError(t, err)

	srv := httptest.NewServer(transport.NewServer(
		sqlite.NewRemoteRepository(db),
		transport.AuthMiddleware(keys),
		nil,
	))
	t.Cleanup(srv.Close)
	return srv, token
}

func newClient(t *testing.T, url, token string) *remote.Client {
	t.Helper()
	c, err := remote.New(remote.Config{BaseURL: url, Token: token, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func record(revision int64, concept string) *project.Record {
	rec := project.NewRecord("p1", "Bridges", "", time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC))
	rec.Foundation.CoreConcept = concept
	rec.Provisional = false
	rec.Revision = revision
	return rec
}

func TestClient_PushFetchRoundTrip(t *testing.T) {
	srv, token := newRemoteStore(t)
	c := newClient(t, srv.URL, token)
	ctx := context.Background()

	_, err := c.Fetch(ctx, "p1")
	require.ErrorIs(t, err, cloudsync.ErrRemoteNotFound)

	require.NoError(t, c.Push(ctx, record(1, "Load and tension")))
	require.NoError(t, c.Push(ctx, record(1, "Load and tension")), "repeated delivery is idempotent")

	got, err := c.Fetch(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Revision)
	require.Equal(t, "Load and tension", got.Foundation.CoreConcept)
}

func TestClient_PushStaleRevisionConflicts(t *testing.T) {
	srv, token := newRemoteStore(t)
	c := newClient(t, srv.URL, token)
	ctx := context.Background()

	require.NoError(t, c.Push(ctx, record(4, "Load and tension")))
	err := c.Push(ctx, record(3, "Something else"))
	require.ErrorIs(t, err, cloudsync.ErrRemoteConflict)
}

func TestClient_BadTokenIsRejected(t *testing.T) {
	srv, _ := newRemoteStore(t)
	c := newClient(t, srv.URL, "wrong")

	err := c.Push(context.Background(), record(1, "Load and tension"))
	require.ErrorIs(t, err, cloudsync.ErrRemoteRejected)
}

func TestClient_ServerErrorsAreTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := newClient(t, srv.URL, "token")

	err := c.Push(context.Background(), record(1, "Load and tension"))
	require.Error(t, err)
	require.NotErrorIs(t, err, cloudsync.ErrRemoteRejected)
	require.NotErrorIs(t, err, cloudsync.ErrRemoteConflict)
	require.Contains(t, err.Error(), "maintenance")
}

func TestClient_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := newClient(t, url, "token")

	err := c.Push(context.Background(), record(1, "Load and tension"))
	require.Error(t, err)
	require.NotErrorIs(t, err, cloudsync.ErrRemoteRejected)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := remote.New(remote.Config{}, nil)
	require.Error(t, err)
}
