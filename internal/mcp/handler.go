package mcp

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/activity"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/microflow"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/stage"
)

// ProjectService defines the metadata index operations needed by MCP.
type ProjectService interface {
	List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error)
	Search(ctx context.Context, query string, opts project.ListOptions) ([]project.Summary, error)
}

// StageService hands out the per-project stage controllers.
type StageService interface {
	Create(req project.CreateRequest) *stage.Controller
	Controller(projectID string) *stage.Controller
	Release(ctx context.Context, projectID string) error
}

// MicroflowService keeps the transient micro-flow engines.
type MicroflowService interface {
	Engine(projectID string, kind microflow.Kind, sink microflow.Sink) *microflow.Engine
	Discard(projectID string)
}

// SyncService exposes delivery state and the connectivity signal.
type SyncService interface {
	Status(ctx context.Context, projectID string) (cloudsync.Status, error)
	DeadLetters(ctx context.Context, projectID string) ([]cloudsync.Job, error)
	RetryDeadLetters(ctx context.Context, projectID string) (int, error)
	SetOnline(online bool)
	Online() bool
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListOptions) ([]activity.Entry, error)
}

// Services contains all domain services needed by MCP. Sync may be nil when no remote is configured.
type Services struct {
	Projects   ProjectService
	Stages     StageService
	Microflows MicroflowService
	Sync       SyncService
	Activity   ActivityService
}

// Handler implements every MCP tool on top of the domain services.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) CreateProject(_ context.Context, req CreateProjectParams) (DraftResponse, error) {
	c := h.svc.Stages.Create(project.CreateRequest{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
	})
	return newDraftResponse(c.Status(), c.CurrentDraft()), nil
}

func (h *Handler) ListProjects(ctx context.Context, req ListProjectsParams) (ProjectListResponse, error) {
	opts := project.ListOptions{
		IncludeProvisional: req.IncludeProvisional,
		Stage:              project.Stage(req.Stage),
		Limit:              req.Limit,
		Offset:             req.Offset,
	}
	summaries, err := h.svc.Projects.List(ctx, opts)
	if err != nil {
		return ProjectListResponse{}, err
	}
	return ProjectListResponse{Projects: nonNilSummaries(summaries)}, nil
}

func (h *Handler) SearchProjects(ctx context.Context, req SearchProjectsParams) (ProjectListResponse, error) {
	summaries, err := h.svc.Projects.Search(ctx, req.Query, project.ListOptions{Limit: req.Limit, Offset: req.Offset})
	if err != nil {
		return ProjectListResponse{}, err
	}
	return ProjectListResponse{Projects: nonNilSummaries(summaries)}, nil
}

func (h *Handler) ViewStage(ctx context.Context, req ViewStageParams) (ViewStageResponse, error) {
	c, err := h.controller(req.ProjectID)
	if err != nil {
		return ViewStageResponse{}, err
	}
	st, err := project.ParseStage(req.Stage)
	if err != nil {
		return ViewStageResponse{}, err
	}
	view, err := c.ViewStage(ctx, st)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			_ = h.svc.Stages.Release(ctx, req.ProjectID)
		}
		return ViewStageResponse{}, err
	}
	resp := ViewStageResponse{Stage: view.Stage, Record: view.Record, Conflict: view.Conflict}
	if view.Record.CurrentStage == st && st != project.StageReview {
		resp.CanComplete = c.CanCompleteStage()
		if !resp.CanComplete {
			resp.ValidationMessage = c.ValidationMessage()
		}
	}
	return resp, nil
}

func (h *Handler) SaveDraft(_ context.Context, req SaveDraftParams) (DraftResponse, error) {
	c, err := h.controller(req.ProjectID)
	if err != nil {
		return DraftResponse{}, err
	}
	if err := c.DebouncedSave(req.Patch()); err != nil {
		return DraftResponse{}, err
	}
	return newDraftResponse(c.Status(), nil), nil
}

func (h *Handler) FlushDraft(ctx context.Context, req ProjectParams) (DraftResponse, error) {
	c, err := h.controller(req.ProjectID)
	if err != nil {
		return DraftResponse{}, err
	}
	if err := c.FlushPendingSave(ctx); err != nil {
		return DraftResponse{}, err
	}
	return newDraftResponse(c.Status(), c.CurrentDraft()), nil
}

func (h *Handler) CanCompleteStage(_ context.Context, req ProjectParams) (CanCompleteResponse, error) {
	c, err := h.controller(req.ProjectID)
	if err != nil {
		return CanCompleteResponse{}, err
	}
	draft := c.CurrentDraft()
	if draft == nil {
		return CanCompleteResponse{}, stage.ErrNotOpened
	}
	ok := c.CanCompleteStage()
	resp := CanCompleteResponse{Stage: draft.CurrentStage, CanComplete: ok}
	if !ok {
		resp.Message = c.ValidationMessage()
	}
	return resp, nil
}

func (h *Handler) CompleteStage(ctx context.Context, req CompleteStageParams) (OutcomeResponse, error) {
	c, err := h.controller(req.ProjectID)
	if err != nil {
		return OutcomeResponse{}, err
	}
	var next project.Stage
	if req.Next != "" {
		if next, err = project.ParseStage(req.Next); err != nil {
			return OutcomeResponse{}, err
		}
	}
	outcome, err := c.CompleteStage(ctx, next)
	if err != nil {
		return OutcomeResponse{}, err
	}
	if !outcome.Repeated {
		h.svc.Microflows.Discard(req.ProjectID)
	}
	return newOutcomeResponse(outcome), nil
}

func (h *Handler) SaveAndContinueLater(ctx context.Context, req ProjectParams) (OutcomeResponse, error) {
	c, err := h.controller(req.ProjectID)
	if err != nil {
		return OutcomeResponse{}, err
	}
	outcome, err := c.SaveAndContinueLater(ctx)
	if err != nil {
		return OutcomeResponse{}, err
	}
	h.svc.Microflows.Discard(req.ProjectID)
	if outcome.Record != nil && outcome.Record.Revision > 0 {
		if err := h.svc.Stages.Release(ctx, req.ProjectID); err != nil {
			h.logger.Warn("releasing controller failed", "project_id", req.ProjectID, "error", err)
		}
	}
	return newOutcomeResponse(outcome), nil
}

func (h *Handler) MicroflowStart(ctx context.Context, req MicroflowParams) (MicroflowResponse, error) {
	engine, err := h.engine(ctx, req.ProjectID, req.Kind)
	if err != nil {
		return MicroflowResponse{}, err
	}
	engine.Reset()
	return MicroflowResponse{Reply: engine.Start(), ProjectID: req.ProjectID}, nil
}

func (h *Handler) MicroflowRespond(ctx context.Context, req MicroflowRespondParams) (MicroflowResponse, error) {
	engine, err := h.engine(ctx, req.ProjectID, req.Kind)
	if err != nil {
		return MicroflowResponse{}, err
	}
	reply, err := engine.Respond(req.Input)
	if err != nil {
		return MicroflowResponse{}, err
	}
	if req.Wait && reply.Substep == microflow.SubstepSuggesting {
		if reply, err = engine.Await(ctx); err != nil {
			return MicroflowResponse{}, err
		}
	}
	return MicroflowResponse{Reply: reply, ProjectID: req.ProjectID}, nil
}

func (h *Handler) MicroflowStatus(ctx context.Context, req MicroflowStatusParams) (MicroflowResponse, error) {
	engine, err := h.engine(ctx, req.ProjectID, req.Kind)
	if err != nil {
		return MicroflowResponse{}, err
	}
	reply := engine.Snapshot()
	if req.Wait {
		if reply, err = engine.Await(ctx); err != nil {
			return MicroflowResponse{}, err
		}
	}
	return MicroflowResponse{Reply: reply, ProjectID: req.ProjectID}, nil
}

func (h *Handler) SyncStatus(ctx context.Context, req ProjectParams) (SyncStatusResponse, error) {
	if h.svc.Sync == nil {
		return SyncStatusResponse{}, ErrSyncDisabled
	}
	if err := requireID(req.ProjectID); err != nil {
		return SyncStatusResponse{}, err
	}
	status, err := h.svc.Sync.Status(ctx, req.ProjectID)
	if err != nil {
		return SyncStatusResponse{}, err
	}
	resp := SyncStatusResponse{Status: status}
	if status.DeadLetters > 0 {
		if resp.DeadLetterJobs, err = h.svc.Sync.DeadLetters(ctx, req.ProjectID); err != nil {
			return SyncStatusResponse{}, err
		}
	}
	return resp, nil
}

func (h *Handler) RetryDeadLetters(ctx context.Context, req ProjectParams) (RetryResponse, error) {
	if h.svc.Sync == nil {
		return RetryResponse{}, ErrSyncDisabled
	}
	if err := requireID(req.ProjectID); err != nil {
		return RetryResponse{}, err
	}
	n, err := h.svc.Sync.RetryDeadLetters(ctx, req.ProjectID)
	if err != nil {
		return RetryResponse{}, err
	}
	return RetryResponse{ProjectID: req.ProjectID, Requeued: n}, nil
}

func (h *Handler) SetOnline(_ context.Context, req SetOnlineParams) (OnlineResponse, error) {
	if h.svc.Sync == nil {
		return OnlineResponse{}, ErrSyncDisabled
	}
	h.svc.Sync.SetOnline(req.Online)
	return OnlineResponse{Online: h.svc.Sync.Online()}, nil
}

func (h *Handler) GetRecentActivity(ctx context.Context, req GetRecentActivityParams) (ActivityResponse, error) {
	opts := activity.ListOptions{
		ProjectID: req.ProjectID,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if req.Type != "" {
		t := activity.EventType(req.Type)
		opts.Type = &t
	}
	entries, err := h.svc.Activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return ActivityResponse{}, err
	}
	resp := ActivityResponse{Entries: make([]ActivityEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, ActivityEntryResponse{
			Timestamp: entry.CreatedAt,
			Type:      entry.Type,
			ProjectID: entry.ProjectID,
			Summary:   entry.Summary,
			Revision:  entry.Revision,
			Details:   entry.Details,
		})
	}
	return resp, nil
}

func (h *Handler) controller(projectID string) (*stage.Controller, error) {
	if err := requireID(projectID); err != nil {
		return nil, err
	}
	return h.svc.Stages.Controller(projectID), nil
}

// engine opens the project on the micro-flow's stage if needed and returns its engine.
func (h *Handler) engine(ctx context.Context, projectID, kindName string) (*microflow.Engine, error) {
	kind, err := microflow.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	c, err := h.controller(projectID)
	if err != nil {
		return nil, err
	}
	if c.CurrentDraft() == nil {
		if _, err := c.ViewStage(ctx, kind.Stage()); err != nil {
			return nil, err
		}
	}
	return h.svc.Microflows.Engine(projectID, kind, c), nil
}

func requireID(projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return errors.Join(project.ErrInvalidInput, errors.New("project_id is required"))
	}
	return nil
}

func nonNilSummaries(in []project.Summary) []project.Summary {
	if in == nil {
		return []project.Summary{}
	}
	return in
}
