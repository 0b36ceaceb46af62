package mcp

import (
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/activity"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/microflow"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/stage"
)

type CreateProjectParams struct {
	ID          string `json:"id,omitempty" jsonschema:"project identifier, generated when omitted"`
	Title       string `json:"title,omitempty" jsonschema:"project title"`
	Description string `json:"description,omitempty" jsonschema:"short description"`
}

type ListProjectsParams struct {
	Stage              string `json:"stage,omitempty" jsonschema:"only projects currently on this stage"`
	IncludeProvisional bool   `json:"include_provisional,omitempty" jsonschema:"include projects without real content yet"`
	Limit              int    `json:"limit,omitempty"`
	Offset             int    `json:"offset,omitempty"`
}

type SearchProjectsParams struct {
	Query  string `json:"query" jsonschema:"full-text query over titles, descriptions and foundations"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

type ProjectParams struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
}

type ViewStageParams struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
	Stage     string `json:"stage" jsonschema:"foundation, structure, deliverables or review"`
}

type PhaseInput struct {
	Name       string   `json:"name,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Activities []string `json:"activities,omitempty"`
	Checkpoint string   `json:"checkpoint,omitempty"`
}

// SaveDraftParams carries a partial edit. Omitted fields are untouched; an empty list clears one.
type SaveDraftParams struct {
	ProjectID       string       `json:"project_id" jsonschema:"project identifier"`
	Title           *string      `json:"title,omitempty"`
	Description     *string      `json:"description,omitempty"`
	CoreConcept     *string      `json:"core_concept,omitempty"`
	DrivingQuestion *string      `json:"driving_question,omitempty"`
	Challenge       *string      `json:"challenge,omitempty"`
	Phases          []PhaseInput `json:"phases,omitempty" jsonschema:"the full ordered list of phases"`
	Milestones      []string     `json:"milestones,omitempty"`
	Artifacts       []string     `json:"artifacts,omitempty"`
	Criteria        []string     `json:"criteria,omitempty"`
}

// Patch converts the params into a record patch.
func (p SaveDraftParams) Patch() project.Patch {
	patch := project.Patch{
		Title:           p.Title,
		Description:     p.Description,
		CoreConcept:     p.CoreConcept,
		DrivingQuestion: p.DrivingQuestion,
		Challenge:       p.Challenge,
		Milestones:      p.Milestones,
		Artifacts:       p.Artifacts,
		Criteria:        p.Criteria,
	}
	if p.Phases != nil {
		patch.Phases = make([]project.Phase, len(p.Phases))
		for i, ph := range p.Phases {
			patch.Phases[i] = project.Phase{
				Name:       ph.Name,
				Summary:    ph.Summary,
				Activities: ph.Activities,
				Checkpoint: ph.Checkpoint,
			}
		}
	}
	return patch
}

type CompleteStageParams struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
	Next      string `json:"next,omitempty" jsonschema:"stage to advance to, defaults to the following stage"`
}

type MicroflowParams struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
	Kind      string `json:"kind" jsonschema:"structure or deliverables"`
}

type MicroflowRespondParams struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
	Kind      string `json:"kind" jsonschema:"structure or deliverables"`
	Input     string `json:"input" jsonschema:"what the user typed"`
	Wait      bool   `json:"wait,omitempty" jsonschema:"block until drafted suggestions are ready"`
}

type MicroflowStatusParams struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
	Kind      string `json:"kind" jsonschema:"structure or deliverables"`
	Wait      bool   `json:"wait,omitempty" jsonschema:"block until drafted suggestions are ready"`
}

type SetOnlineParams struct {
	Online bool `json:"online" jsonschema:"whether the remote store is reachable"`
}

type GetRecentActivityParams struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"project to filter by"`
	Type      string `json:"type,omitempty" jsonschema:"event type to filter by"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

type ProjectListResponse struct {
	Projects []project.Summary `json:"projects"`
}

type DraftResponse struct {
	ProjectID  string          `json:"project_id"`
	Revision   int64           `json:"revision"`
	HasPending bool            `json:"has_pending"`
	LastError  string          `json:"last_error,omitempty"`
	Record     *project.Record `json:"record,omitempty"`
}

func newDraftResponse(st stage.DraftStatus, rec *project.Record) DraftResponse {
	return DraftResponse{
		ProjectID:  st.ProjectID,
		Revision:   st.Revision,
		HasPending: st.HasPending,
		LastError:  st.LastError,
		Record:     rec,
	}
}

type ViewStageResponse struct {
	Stage             project.Stage           `json:"stage"`
	Record            *project.Record         `json:"record"`
	Conflict          *project.ConflictNotice `json:"conflict,omitempty"`
	CanComplete       bool                    `json:"can_complete"`
	ValidationMessage string                  `json:"validation_message,omitempty"`
}

type CanCompleteResponse struct {
	Stage       project.Stage `json:"stage"`
	CanComplete bool          `json:"can_complete"`
	Message     string        `json:"message,omitempty"`
}

type OutcomeResponse struct {
	From     project.Stage   `json:"from"`
	To       project.Stage   `json:"to"`
	Navigate bool            `json:"navigate"`
	Repeated bool            `json:"repeated,omitempty"`
	Record   *project.Record `json:"record"`
}

func newOutcomeResponse(o *stage.Outcome) OutcomeResponse {
	return OutcomeResponse{
		From:     o.From,
		To:       o.To,
		Navigate: o.Navigate,
		Repeated: o.Repeated,
		Record:   o.Record,
	}
}

type MicroflowResponse struct {
	microflow.Reply
	ProjectID string `json:"project_id"`
}

type SyncStatusResponse struct {
	cloudsync.Status
	DeadLetterJobs []cloudsync.Job `json:"dead_letter_jobs,omitempty"`
}

type RetryResponse struct {
	ProjectID string `json:"project_id"`
	Requeued  int    `json:"requeued"`
}

type OnlineResponse struct {
	Online bool `json:"online"`
}

type ActivityEntryResponse struct {
	Timestamp time.Time          `json:"timestamp"`
	Type      activity.EventType `json:"type"`
	ProjectID string             `json:"project_id"`
	Summary   string             `json:"summary"`
	Revision  int64              `json:"revision,omitempty"`
	Details   string             `json:"details,omitempty"`
}

type ActivityResponse struct {
	Entries []ActivityEntryResponse `json:"entries"`
}
