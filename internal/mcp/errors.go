package mcp

import (
	"errors"
	"fmt"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/microflow"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/stage"
)

// ErrSyncDisabled indicates a sync tool was called with no remote store configured.
var ErrSyncDisabled = errors.New("sync is not configured")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors map to INTERNAL.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *project.ValidationError
	var perr *stage.PersistenceError
	switch {
	case errors.As(err, &verr):
		return &APIError{
			Code:         "VALIDATION_FAILED",
			Message:      verr.Message,
			Details:      map[string]any{"stage": verr.Stage, "fields": verr.Fields},
			RecoveryHint: "Fill in the named fields, then call complete_stage again",
		}
	case errors.As(err, &perr):
		return &APIError{
			Code:         "PERSISTENCE_FAILED",
			Message:      perr.Error(),
			RecoveryHint: "Edits are still pending; retry flush_draft before leaving",
		}
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Check the ID or call list_projects"}
	case errors.Is(err, project.ErrUnknownStage):
		return &APIError{Code: "UNKNOWN_STAGE", Message: err.Error(), RecoveryHint: "Use foundation, structure, deliverables or review"}
	case errors.Is(err, project.ErrStaleRevision):
		return &APIError{Code: "STALE_REVISION", Message: "project changed since it was loaded", RecoveryHint: "Call view_stage to reload"}
	case errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, stage.ErrNotOpened):
		return &APIError{Code: "NOT_OPENED", Message: "project not opened", RecoveryHint: "Call view_stage or create_project first"}
	case errors.Is(err, stage.ErrStageLocked):
		return &APIError{Code: "STAGE_LOCKED", Message: err.Error(), RecoveryHint: "Complete the current stage first"}
	case errors.Is(err, stage.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: err.Error(), RecoveryHint: "Stages advance one at a time"}
	case errors.Is(err, microflow.ErrUnknownKind):
		return &APIError{Code: "UNKNOWN_KIND", Message: err.Error(), RecoveryHint: "Use structure or deliverables"}
	case errors.Is(err, microflow.ErrNoDraft):
		return &APIError{Code: "NOT_OPENED", Message: err.Error(), RecoveryHint: "Call view_stage first"}
	case errors.Is(err, ErrSyncDisabled):
		return &APIError{Code: "SYNC_DISABLED", Message: err.Error(), RecoveryHint: "Configure ALF_SYNC_REMOTE_URL"}
	case errors.Is(err, cloudsync.ErrOffline):
		return &APIError{Code: "OFFLINE", Message: err.Error(), RecoveryHint: "Edits are kept locally and delivered when back online"}
	default:
		return &APIError{Code: "INTERNAL", Message: err.Error()}
	}
}
