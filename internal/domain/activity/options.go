package activity

// ListOptions provides filtering options for listing activity.
type ListOptions struct {
	ProjectID string
	Type      *EventType
	Limit     int
	Offset    int
}
