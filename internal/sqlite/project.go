package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
)

// ProjectRepository implements project.Repository for SQLite. Every write
// updates the record, its index entry and the sync queue in one transaction.
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Get retrieves a project record by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Record, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM projects WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return decodeRecord(payload)
}

// Commit writes rec at its revision, provided the stored revision still equals expectedRevision.
func (r *ProjectRepository) Commit(ctx context.Context, rec *project.Record, expectedRevision int64) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if expectedRevision == 0 {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO projects (id, revision, payload, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, rec.ID, rec.Revision, payload, rec.CreatedAt, rec.UpdatedAt)
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			if err != nil {
				return fmt.Errorf("failed to insert project: %w", err)
			}
		} else {
			result, err := tx.ExecContext(ctx, `
				UPDATE projects SET revision = ?, payload = ?, updated_at = ?
				WHERE id = ? AND revision = ?
			`, rec.Revision, payload, rec.UpdatedAt, rec.ID, expectedRevision)
			if err != nil {
				return fmt.Errorf("failed to update project: %w", err)
			}
			if err := checkRevision(ctx, tx, result, rec.ID); err != nil {
				return err
			}
		}

		if err := upsertIndex(ctx, tx, rec); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO sync_jobs (id, project_id, revision, payload, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, 'pending', ?, ?)
		`, uuid.NewString(), rec.ID, rec.Revision, payload, rec.UpdatedAt, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to enqueue sync job: %w", err)
		}
		return nil
	})
}

// Adopt stores remote content as the local copy, records syncedRevision as delivered
// and supersedes queued jobs.
func (r *ProjectRepository) Adopt(ctx context.Context, rec *project.Record, expectedRevision, syncedRevision int64) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if expectedRevision == 0 {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO projects (id, revision, payload, synced_revision, synced_payload, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, rec.ID, rec.Revision, payload, syncedRevision, payload, rec.CreatedAt, rec.UpdatedAt)
			if isUniqueViolation(err) {
				return repository.ErrConflict
			}
			if err != nil {
				return fmt.Errorf("failed to insert adopted project: %w", err)
			}
		} else {
			result, err := tx.ExecContext(ctx, `
				UPDATE projects
				SET revision = ?, payload = ?, synced_revision = ?, synced_payload = ?, updated_at = ?
				WHERE id = ? AND revision = ?
			`, rec.Revision, payload, syncedRevision, payload, rec.UpdatedAt, rec.ID, expectedRevision)
			if err != nil {
				return fmt.Errorf("failed to adopt project: %w", err)
			}
			if err := checkRevision(ctx, tx, result, rec.ID); err != nil {
				return err
			}
		}

		if err := upsertIndex(ctx, tx, rec); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE sync_jobs SET status = 'superseded', updated_at = ?
			WHERE project_id = ? AND status = 'pending'
		`, now, rec.ID)
		if err != nil {
			return fmt.Errorf("failed to supersede sync jobs: %w", err)
		}
		return nil
	})
}

// SyncState returns the last revision known to be delivered, with its snapshot.
func (r *ProjectRepository) SyncState(ctx context.Context, id string) (project.SyncState, error) {
	var state project.SyncState
	var base sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT synced_revision, synced_payload FROM projects WHERE id = ?`, id,
	).Scan(&state.Revision, &base)
	if errors.Is(err, sql.ErrNoRows) {
		return project.SyncState{}, repository.ErrNotFound
	}
	if err != nil {
		return project.SyncState{}, fmt.Errorf("failed to get sync state: %w", err)
	}
	if base.Valid && base.String != "" {
		rec, err := decodeRecord(base.String)
		if err != nil {
			return project.SyncState{}, err
		}
		state.Base = rec
	}
	return state, nil
}

// List returns index entries ordered by most recent update.
func (r *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error) {
	query := `
		SELECT id, title, description, current_stage, stage_status, provisional, revision, updated_at
		FROM project_index
	`
	args := []interface{}{}
	conditions := []string{}

	if !opts.IncludeProvisional {
		conditions = append(conditions, "provisional = 0")
	}
	if opts.Stage != "" {
		conditions = append(conditions, "current_stage = ?")
		args = append(args, opts.Stage)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, id"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

func checkRevision(ctx context.Context, tx *sql.Tx, result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if exists == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func upsertIndex(ctx context.Context, tx *sql.Tx, rec *project.Record) error {
	status, err := json.Marshal(rec.StageStatus)
	if err != nil {
		return fmt.Errorf("failed to encode stage status: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO project_index (id, title, description, current_stage, stage_status, provisional, revision, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			current_stage = excluded.current_stage,
			stage_status = excluded.stage_status,
			provisional = excluded.provisional,
			revision = excluded.revision,
			updated_at = excluded.updated_at
	`, rec.ID, rec.Title, rec.Description, rec.CurrentStage, string(status), rec.Provisional, rec.Revision, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project index: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects_fts WHERE project_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("failed to clear search index: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects_fts (project_id, title, description, foundation)
		VALUES (?, ?, ?, ?)
	`, rec.ID, rec.Title, rec.Description, foundationText(rec.Foundation))
	if err != nil {
		return fmt.Errorf("failed to update search index: %w", err)
	}
	return nil
}

func scanSummaries(rows *sql.Rows) ([]project.Summary, error) {
	var summaries []project.Summary
	for rows.Next() {
		var s project.Summary
		var status string
		if err := rows.Scan(
			&s.ID,
			&s.Title,
			&s.Description,
			&s.CurrentStage,
			&status,
			&s.Provisional,
			&s.Revision,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project summary: %w", err)
		}
		if err := json.Unmarshal([]byte(status), &s.StageStatus); err != nil {
			return nil, fmt.Errorf("failed to decode stage status: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return summaries, nil
}

func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit <= 0 && offset <= 0 {
		return query, args
	}
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}
