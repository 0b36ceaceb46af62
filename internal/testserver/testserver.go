// Package testserver runs the whole stack in-process for end-to-end tests: a reference
// remote store over HTTP and a local server wired to it, driven through MCP.
package testserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/activity"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/microflow"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/stage"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/mcp"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/remote"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/sqlite"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// RemoteStore is the reference cloud store behind an httptest server.
type RemoteStore struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Repo   *sqlite.RemoteRepository
	Owner  string
	Token  string

	down atomic.Bool
}

// NewRemoteStore starts a remote store with one API key for owner.
func NewRemoteStore(t *testing.T, owner string) *RemoteStore {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	keys := sqlite.NewAPIKeyRepository(db)
	token, err := keys.Create(context.Background(), owner, "testserver")
	require.NoError(t, err)

	rs := &RemoteStore{
		DB:    db,
		Repo:  sqlite.NewRemoteRepository(db),
		Owner: owner,
		Token: token,
	}
	router := transport.NewServer(rs.Repo, transport.AuthMiddleware(keys), nil)
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rs.down.Load() {
			http.Error(w, "remote store unavailable", http.StatusServiceUnavailable)
			return
		}
		router.ServeHTTP(w, r)
	}))

	t.Cleanup(func() {
		rs.Server.Close()
		_ = db.Close()
	})
	return rs
}

// SetDown makes every request fail with 503 until called with false.
func (rs *RemoteStore) SetDown(down bool) {
	rs.down.Store(down)
}

// Get returns the stored copy of a project, or nil.
func (rs *RemoteStore) Get(t *testing.T, id string) *project.Record {
	t.Helper()
	rec, err := rs.Repo.Get(context.Background(), rs.Owner, id)
	if err != nil {
		return nil
	}
	return rec
}

// Options configures a local Stack.
type Options struct {
	// DBPath defaults to a file in t.TempDir(); reuse it to simulate a restart.
	DBPath    string
	Remote    *RemoteStore
	Online    bool
	Sync      cloudsync.Config
	Generator microflow.Generator
}

// Stack is the local server: store, sync adapter, controllers and an MCP client session.
type Stack struct {
	DBPath     string
	DB         *sqlite.DB
	Projects   *project.Service
	Stages     *stage.Manager
	Microflows *microflow.Sessions
	Activity   *activity.Service
	Recorder   *activity.Recorder
	Sync       *cloudsync.Adapter
	Client     *sdkmcp.ClientSession

	closers []func()
	closed  bool
}

// Start wires a local stack the same way the serve command does.
func Start(t *testing.T, opts Options) *Stack {
	t.Helper()
	ctx := context.Background()

	path := opts.DBPath
	if path == "" {
		path = filepath.Join(t.TempDir(), "alf.db")
	}
	cfg := opts.Sync
	if cfg.MaxAttempts == 0 {
		cfg = cloudsync.Config{
			MaxAttempts:     3,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			RequestTimeout:  2 * time.Second,
		}
	}

	db, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	s := &Stack{DBPath: path, DB: db}
	s.closers = append(s.closers, func() { _ = db.Close() })

	s.Activity = activity.NewService(sqlite.NewActivityRepository(db), nil)
	s.Recorder = activity.NewRecorder(s.Activity, nil)

	projectOpts := []project.Option{project.WithSearcher(sqlite.NewSearchRepository(db))}
	if opts.Remote != nil {
		client, err := remote.New(remote.Config{BaseURL: opts.Remote.Server.URL, Token: opts.Remote.Token}, nil)
		require.NoError(t, err)
		s.Sync = cloudsync.New(sqlite.NewJobRepository(db), client, cfg, nil,
			cloudsync.WithTracker(s.Recorder),
			cloudsync.WithOnline(opts.Online),
		)
		require.NoError(t, s.Sync.Start(ctx))
		s.closers = append(s.closers, client.Close, s.Sync.Close)
		projectOpts = append(projectOpts, project.WithResolver(s.Sync), project.WithNotifier(s.Sync))
	}

	s.Projects = project.NewService(sqlite.NewProjectRepository(db), nil, projectOpts...)
	s.Stages = stage.NewManager(s.Projects, s.Recorder, nil, stage.WithDebounce(time.Hour))
	s.Microflows = microflow.NewSessions(opts.Generator, nil, microflow.WithTracker(s.Recorder))

	services := mcp.Services{
		Projects:   s.Projects,
		Stages:     s.Stages,
		Microflows: s.Microflows,
		Activity:   s.Activity,
	}
	if s.Sync != nil {
		services.Sync = s.Sync
	}

	server := mcp.NewServer(mcp.Config{Services: services})
	st, ct := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "testserver", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	s.Client = cs
	s.closers = append(s.closers, func() {
		_ = cs.Close()
		_ = ss.Close()
	})

	t.Cleanup(s.Close)
	return s
}

// Close shuts the stack down in the same order as the serve command. It is idempotent.
func (s *Stack) Close() {
	if s.closed {
		return
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Stages.FlushAll(ctx)

	// Reverse order: MCP session, sync adapter, database. The recorder drains before the database closes.
	for i := len(s.closers) - 1; i >= 1; i-- {
		s.closers[i]()
	}
	s.Recorder.Close()
	s.closers[0]()
}

// Call invokes an MCP tool and decodes its JSON result into out.
func (s *Stack) Call(t *testing.T, name string, args map[string]any, out any) {
	t.Helper()
	text, isErr := s.call(t, name, args)
	require.False(t, isErr, "tool %s failed: %s", name, text)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(text), out))
	}
}

// CallError invokes an MCP tool that is expected to fail and returns its error body.
func (s *Stack) CallError(t *testing.T, name string, args map[string]any) mcp.APIError {
	t.Helper()
	text, isErr := s.call(t, name, args)
	require.True(t, isErr, "tool %s unexpectedly succeeded: %s", name, text)
	var apiErr mcp.APIError
	require.NoError(t, json.Unmarshal([]byte(text), &apiErr))
	return apiErr
}

func (s *Stack) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := s.Client.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

// SyncStatus reads the sync state of a project through MCP.
func (s *Stack) SyncStatus(t *testing.T, projectID string) mcp.SyncStatusResponse {
	t.Helper()
	var st mcp.SyncStatusResponse
	s.Call(t, "sync_status", map[string]any{"project_id": projectID}, &st)
	return st
}
