package activity

import "time"

// EventType names a telemetry event recorded in the activity log.
type EventType string

const (
	TypeStageViewed          EventType = "stage_viewed"
	TypeStageCompleted       EventType = "stage_completed"
	TypeSaveAndContinueLater EventType = "save_and_continue_later"
	TypeConflictDetected     EventType = "conflict_detected"
	TypeSyncDeadLettered     EventType = "sync_dead_lettered"
	TypeSuggestionFallback   EventType = "suggestion_fallback"
	TypeSuggestionAccepted   EventType = "suggestion_accepted"
)

// Entry is one event in the activity log.
type Entry struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"project_id"`
	Type      EventType `json:"type"`
	Summary   string    `json:"summary"`
	Details   string    `json:"details,omitempty"` // JSON object
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
}
