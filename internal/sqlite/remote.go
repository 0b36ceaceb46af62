package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
)

// RemoteRepository persists the cloud copy of projects for the reference remote store.
type RemoteRepository struct {
	db *DB
}

// NewRemoteRepository creates a new RemoteRepository
func NewRemoteRepository(db *DB) *RemoteRepository {
	return &RemoteRepository{db: db}
}

// Get returns the stored copy of a project for an owner.
func (r *RemoteRepository) Get(ctx context.Context, ownerID, id string) (*project.Record, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM remote_projects WHERE owner_id = ? AND id = ?`, ownerID, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get remote project: %w", err)
	}
	return decodeRecord(payload)
}

// Put merges an incoming revision. A repeated delivery of the stored revision is a
// no-op; an older or diverging revision is rejected with repository.ErrConflict.
func (r *RemoteRepository) Put(ctx context.Context, ownerID string, rec *project.Record) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var storedRevision int64
		var storedPayload string
		err := tx.QueryRowContext(ctx,
			`SELECT revision, payload FROM remote_projects WHERE owner_id = ? AND id = ?`, ownerID, rec.ID,
		).Scan(&storedRevision, &storedPayload)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `
				INSERT INTO remote_projects (owner_id, id, revision, payload, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, ownerID, rec.ID, rec.Revision, payload, now)
			if err != nil {
				return fmt.Errorf("failed to insert remote project: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to read remote project: %w", err)
		case storedRevision == rec.Revision && storedPayload == payload:
			return nil
		case storedRevision >= rec.Revision:
			return repository.ErrConflict
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE remote_projects SET revision = ?, payload = ?, updated_at = ?
			WHERE owner_id = ? AND id = ?
		`, rec.Revision, payload, now, ownerID, rec.ID)
		if err != nil {
			return fmt.Errorf("failed to update remote project: %w", err)
		}
		return nil
	})
}
