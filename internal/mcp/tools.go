package mcp

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolFunc is a typed Handler method.
type toolFunc[In, Out any] func(ctx context.Context, in In) (Out, error)

// addTool registers fn as a tool. Results and domain errors are returned as JSON text;
// errors set IsError and carry an APIError body.
func addTool[In, Out any](server *sdkmcp.Server, name, description string, fn toolFunc[In, Out]) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
		out, err := fn(ctx, in)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(out), nil, nil
	})
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	// Projects
	addTool(server, "create_project",
		"Start a new project draft. Nothing is written until the foundation holds real content.",
		h.CreateProject)
	addTool(server, "list_projects",
		"List projects from the metadata index, most recently updated first",
		h.ListProjects)
	addTool(server, "search_projects",
		"Full-text search over project titles, descriptions and foundations",
		h.SearchProjects)

	// Stage controller
	addTool(server, "view_stage",
		"Open a project on a stage. Loads the newest revision and reports any reconciled conflict.",
		h.ViewStage)
	addTool(server, "save_draft",
		"Merge a partial edit into the draft. Edits are saved after a short quiet period.",
		h.SaveDraft)
	addTool(server, "flush_draft",
		"Write any pending edit immediately",
		h.FlushDraft)
	addTool(server, "can_complete_stage",
		"Check whether the current stage is complete enough to advance",
		h.CanCompleteStage)
	addTool(server, "complete_stage",
		"Save pending edits, validate the current stage and advance to the next one",
		h.CompleteStage)
	addTool(server, "save_and_continue_later",
		"Save pending edits and leave the workflow without changing stage",
		h.SaveAndContinueLater)

	// Micro-flows
	addTool(server, "microflow_start",
		"Begin a guided conversation that drafts phases (structure) or deliverables",
		h.MicroflowStart)
	addTool(server, "microflow_respond",
		"Answer the current micro-flow prompt: an answer, a question, 'suggest all', 'next', 'customize 2: ...', 'accept' or 'cancel'",
		h.MicroflowRespond)
	addTool(server, "microflow_status",
		"Return the current micro-flow state, optionally waiting for drafted suggestions",
		h.MicroflowStatus)

	// Sync
	addTool(server, "sync_status",
		"Report cloud delivery state for a project: idle, pending or failed",
		h.SyncStatus)
	addTool(server, "retry_dead_letters",
		"Move failed deliveries of a project back into the sync queue",
		h.RetryDeadLetters)
	addTool(server, "set_online",
		"Signal connectivity. Going online drains every queued delivery.",
		h.SetOnline)

	// Activity
	addTool(server, "get_recent_activity",
		"List recent activity, including conflict reconciliations and failed deliveries",
		h.GetRecentActivity)
}

func jsonResult(v any) *sdkmcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

func errorResult(err error) *sdkmcp.CallToolResult {
	apiErr := MapError(err)
	data, mErr := json.Marshal(apiErr)
	if mErr != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
