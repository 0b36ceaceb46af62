package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

// Resolve compares the remote revision with the last synced one. When the remote
// moved ahead it is adopted in full and local-only field edits are reapplied on top.
// Fields edited on both sides keep the remote value.
func (a *Adapter) Resolve(ctx context.Context, id string, local *project.Record, state project.SyncState) (*project.Resolution, error) {
	if !a.Online() {
		return nil, nil
	}

	fctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()
	remote, err := a.remote.Fetch(fctx, id)
	if err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			return nil, nil
		}
		return nil, &SyncError{ProjectID: id, Err: err}
	}

	if local == nil {
		return &project.Resolution{Remote: remote}, nil
	}
	if remote.Revision <= state.Revision {
		return nil, nil
	}

	localEdits := project.Diff(state.Base, local)
	remoteEdits := project.Diff(state.Base, remote)
	overridden := intersect(localEdits.Fields(), remoteEdits.Fields())

	// Keep only edits that still change the adopted record.
	candidate := remote.Clone()
	localEdits.Without(overridden...).Apply(candidate)
	reapply := project.Diff(remote, candidate)

	notice := &project.ConflictNotice{
		ProjectID:      id,
		ConflictType:   project.ConflictRemoteAhead,
		LocalRevision:  local.Revision,
		SyncedRevision: state.Revision,
		RemoteRevision: remote.Revision,
		Reapplied:      reapply.Fields(),
		Overridden:     overridden,
		Message:        conflictMessage(remote.Revision, reapply.Fields(), overridden),
		DetectedAt:     time.Now().UTC(),
	}

	a.logger.Info("remote revision ahead of local",
		"project_id", id,
		"revision", local.Revision,
		"synced_revision", state.Revision,
		"remote_revision", remote.Revision,
		"reapplied", notice.Reapplied,
		"overridden", overridden,
	)

	return &project.Resolution{Remote: remote, Reapply: reapply, Conflict: notice}, nil
}

func intersect(a, b []string) []string {
	var out []string
	for _, v := range a {
		if slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func conflictMessage(remoteRevision int64, reapplied, overridden []string) string {
	msg := fmt.Sprintf("Loaded a newer copy (revision %d) saved on another device.", remoteRevision)
	if len(reapplied) > 0 {
		msg += fmt.Sprintf(" Kept your unsynced edits to %d field(s).", len(reapplied))
	}
	if len(overridden) > 0 {
		msg += fmt.Sprintf(" %d field(s) edited in both places now show the newer copy.", len(overridden))
	}
	return msg
}
