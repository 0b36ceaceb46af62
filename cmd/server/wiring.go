package main

import (
	"fmt"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/config"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/activity"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/microflow"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/stage"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/generation"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/mcp"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/remote"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/sqlite"
)

// local is the wired local-first stack.
type local struct {
	db         *sqlite.DB
	projects   *project.Service
	stages     *stage.Manager
	microflows *microflow.Sessions
	activity   *activity.Service
	recorder   *activity.Recorder
	sync       *cloudsync.Adapter
}

func (rt *runtime) buildLocal() (*local, error) {
	cfg := rt.cfg
	logger := rt.logger

	db, err := rt.openDB(cfg.DB.Path)
	if err != nil {
		return nil, err
	}

	l := &local{db: db}
	l.activity = activity.NewService(sqlite.NewActivityRepository(db), logger)
	l.recorder = activity.NewRecorder(l.activity, logger)
	rt.closers = append(rt.closers, l.recorder.Close)

	projectOpts := []project.Option{project.WithSearcher(sqlite.NewSearchRepository(db))}
	if cfg.SyncActive() {
		client, err := remote.New(remote.Config{
			BaseURL: cfg.Sync.RemoteURL,
			Token:   cfg.Sync.Token,
			Timeout: cfg.Sync.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("remote store client: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)

		l.sync = cloudsync.New(sqlite.NewJobRepository(db), client, syncConfig(cfg), logger,
			cloudsync.WithTracker(l.recorder),
			cloudsync.WithOnline(cfg.Sync.StartOnline),
		)
		rt.closers = append(rt.closers, l.sync.Close)
		projectOpts = append(projectOpts, project.WithResolver(l.sync), project.WithNotifier(l.sync))
	}
	l.projects = project.NewService(sqlite.NewProjectRepository(db), logger, projectOpts...)

	l.stages = stage.NewManager(l.projects, l.recorder, logger,
		stage.WithDebounce(cfg.Stage.Debounce),
		stage.WithRules(rules(cfg.Stage)),
	)

	var gen microflow.Generator
	if cfg.Generation.Endpoint != "" {
		client, err := generation.New(generation.Config{
			Endpoint: cfg.Generation.Endpoint,
			Token:    cfg.Generation.Token,
			Timeout:  cfg.Generation.Timeout,
			Rate:     cfg.Generation.Rate,
			Burst:    cfg.Generation.Burst,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("generation client: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)
		gen = client
	}
	l.microflows = microflow.NewSessions(gen, logger,
		microflow.WithTracker(l.recorder),
		microflow.WithTimeout(cfg.Generation.Timeout),
	)
	return l, nil
}

func (l *local) services() mcp.Services {
	svc := mcp.Services{
		Projects:   l.projects,
		Stages:     l.stages,
		Microflows: l.microflows,
		Activity:   l.activity,
	}
	if l.sync != nil {
		svc.Sync = l.sync
	}
	return svc
}

func rules(c config.StageConfig) project.Rules {
	return project.Rules{
		MinFoundationChars:    c.MinFoundationChars,
		MinFoundationWords:    c.MinFoundationWords,
		MinPhases:             c.MinPhases,
		MinActivitiesPerPhase: c.MinActivitiesPerPhase,
		MinMilestones:         c.MinMilestones,
		MinArtifacts:          c.MinArtifacts,
		MinCriteria:           c.MinCriteria,
	}
}

func syncConfig(cfg config.Config) cloudsync.Config {
	return cloudsync.Config{
		MaxAttempts:     cfg.Sync.MaxAttempts,
		InitialInterval: cfg.Sync.InitialInterval,
		MaxInterval:     cfg.Sync.MaxInterval,
		RequestTimeout:  cfg.Sync.Timeout,
	}
}
