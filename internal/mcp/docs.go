package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `alf-coach helps a teacher author a project-based learning unit in four stages:
foundation, structure, deliverables, review.

Core concepts:
- Project: one record per unit. Every local write bumps its revision; a background worker delivers
  revisions to the cloud store in order.
- Stage: only the current stage and earlier ones can be viewed. A stage is completed only when it
  passes validation (three substantive foundation fields, three phases with activities, three
  milestones plus an artifact plus three criteria).
- Draft: edits sent with save_draft are merged in memory and written after a short pause.
  complete_stage and save_and_continue_later always write pending edits first.
- Micro-flow: a guided conversation that drafts phases or deliverables. Nothing it suggests is
  saved until the user accepts.

Default workflow:
1) create_project, or list_projects / search_projects to resume one.
2) view_stage(project_id, stage) before editing. If it returns a conflict, tell the user which
   fields were taken from the cloud copy.
3) save_draft as the user types. can_complete_stage explains what is missing.
4) complete_stage to advance, or save_and_continue_later to stop.
5) On structure and deliverables, microflow_start then microflow_respond with the user's words.

Docs:
- alf://docs/index
- alf://docs/stages
- alf://docs/microflows
- alf://docs/sync
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "alf://docs/index",
		Name:        "docs_index",
		Title:       "alf-coach docs index",
		Description: "Entry point for agent-facing docs.",
		Content: `# alf-coach: Agent Docs Index

## Quick start

1. ` + "`create_project`" + ` or ` + "`list_projects`" + `.
2. ` + "`view_stage`" + ` on the project's current stage.
3. ` + "`save_draft`" + ` for every edit; read ` + "`can_complete_stage`" + ` before offering to move on.
4. ` + "`complete_stage`" + ` or ` + "`save_and_continue_later`" + `.

## Docs (read on demand)

- ` + "`alf://docs/stages`" + `: stage rules, validation thresholds, autosave.
- ` + "`alf://docs/microflows`" + `: guided drafting of phases and deliverables.
- ` + "`alf://docs/sync`" + `: offline behaviour, cloud delivery, conflicts.
`,
	},
	{
		URI:         "alf://docs/stages",
		Name:        "stages",
		Title:       "Stages and autosave",
		Description: "Stage order, validation rules and how drafts are saved.",
		Content: `# Stages

Order: foundation, structure, deliverables, review. ` + "`currentStage`" + ` only moves forward, one step at a time.

## Validation

- foundation: coreConcept, drivingQuestion and challenge must each be substantive (at least 12
  characters and 3 words, not a placeholder such as "TBD").
- structure: at least 3 phases, each with at least 1 activity.
- deliverables: at least 3 milestones, 1 artifact and 3 assessment criteria.

A failed check returns ` + "`VALIDATION_FAILED`" + ` with the missing fields. Nothing is changed.

## Autosave

- ` + "`save_draft`" + ` never blocks. Edits within the autosave delay are merged and written once.
- A new project is not written until one of its stage fields has real content.
- ` + "`PERSISTENCE_FAILED`" + ` means the local write failed. The edit is kept in memory; call
  ` + "`flush_draft`" + ` again before letting the user leave.
- Completing the stage you are already on, right after completing the previous one, is a no-op.
`,
	},
	{
		URI:         "alf://docs/microflows",
		Name:        "microflows",
		Title:       "Micro-flows",
		Description: "Guided drafting of phases (structure) and deliverables.",
		Content: `# Micro-flows

States: diagnostic, suggesting, reviewing, then accepted or cancelled.

- diagnostic: the engine asks one question about the learners. Answer it, or say "suggest all" to
  see every suggestion at once instead of one at a time.
- suggesting: suggestions are being drafted. Pass ` + "`wait: true`" + ` to block until they are ready.
  If drafting fails or times out, template suggestions are used and status is "fallback".
- reviewing: one suggestion at a time. "yes" or "next" keeps it and moves on; on the last one it
  saves them all through the normal draft path. "show all" reveals every suggestion, after which
  "accept" saves. "customize 2: New name: activity; activity" rewrites one.
- A question at any point ("what is a checkpoint?") gets help without changing state.
- "cancel" or "nevermind" discards the suggestions. Nothing is saved.
`,
	},
	{
		URI:         "alf://docs/sync",
		Name:        "sync",
		Title:       "Offline and sync",
		Description: "Local-first storage, cloud delivery and conflict handling.",
		Content: `# Offline and sync

- Every write lands locally first and queues a delivery job in the same transaction.
- Jobs for one project are delivered in revision order with exponential backoff. After the retry
  ceiling a job becomes a dead letter; ` + "`sync_status`" + ` shows it and ` + "`retry_dead_letters`" + `
  requeues it.
- ` + "`set_online(false)`" + ` pauses delivery; ` + "`set_online(true)`" + ` drains every queue.
- On ` + "`view_stage`" + `, if the cloud copy moved ahead of the last delivered revision, the cloud copy
  wins. Fields edited only locally are reapplied on top; fields edited on both sides are listed as
  overridden. The notice is also in ` + "`get_recent_activity`" + ` as conflict_detected.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
