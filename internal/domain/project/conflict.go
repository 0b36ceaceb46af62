package project

import "time"

// ConflictRemoteAhead is the only conflict type: the remote revision moved past the last synced one.
const ConflictRemoteAhead = "remote_ahead"

// ConflictNotice describes a load-time reconciliation. It is informational, never an error.
type ConflictNotice struct {
	ProjectID       string    `json:"project_id"`
	ConflictType    string    `json:"conflict_type"`
	LocalRevision   int64     `json:"local_revision"`
	SyncedRevision  int64     `json:"synced_revision"`
	RemoteRevision  int64     `json:"remote_revision"`
	AdoptedRevision int64     `json:"adopted_revision"`
	Reapplied       []string  `json:"reapplied,omitempty"`
	Overridden      []string  `json:"overridden,omitempty"`
	Message         string    `json:"message"`
	DetectedAt      time.Time `json:"detected_at"`
}

// Properties flattens the notice for telemetry and the audit trail.
func (n *ConflictNotice) Properties() map[string]any {
	return map[string]any{
		"projectId":       n.ProjectID,
		"conflictType":    n.ConflictType,
		"localRevision":   n.LocalRevision,
		"syncedRevision":  n.SyncedRevision,
		"remoteRevision":  n.RemoteRevision,
		"adoptedRevision": n.AdoptedRevision,
		"revision":        n.AdoptedRevision,
		"reapplied":       n.Reapplied,
		"overridden":      n.Overridden,
	}
}

// Resolution is a Resolver's decision. A nil Remote keeps the local copy.
type Resolution struct {
	Remote   *Record
	Reapply  Patch
	Conflict *ConflictNotice
}

// OpenResult is the authoritative record plus any reconciliation notice.
type OpenResult struct {
	Record   *Record
	Conflict *ConflictNotice
}
