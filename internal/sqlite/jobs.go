package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
)

// JobRepository implements cloudsync.JobRepository over the sync_jobs outbox.
// Jobs are written by ProjectRepository.Commit.
type JobRepository struct {
	db  *DB
	now func() time.Time
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db, now: time.Now}
}

const jobColumns = `seq, id, project_id, revision, payload, status, attempts, last_error, created_at, updated_at`

// NextPending returns the oldest pending job of a project.
func (r *JobRepository) NextPending(ctx context.Context, projectID string) (*cloudsync.Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM sync_jobs
		WHERE project_id = ? AND status = 'pending'
		ORDER BY seq
		LIMIT 1
	`, projectID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next sync job: %w", err)
	}
	return job, nil
}

// PendingProjects lists projects with at least one pending job.
func (r *JobRepository) PendingProjects(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT project_id FROM sync_jobs WHERE status = 'pending' ORDER BY project_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending projects: %w", err)
	}
	return ids, nil
}

// MarkSynced marks a pending job delivered and advances the project's synced revision.
// A job superseded in the meantime is left alone.
func (r *JobRepository) MarkSynced(ctx context.Context, job *cloudsync.Job) error {
	now := r.now().UTC()
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE sync_jobs SET status = 'synced', last_error = '', updated_at = ?
			WHERE id = ? AND status = 'pending'
		`, now, job.ID)
		if err != nil {
			return fmt.Errorf("failed to mark job synced: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil || n == 0 {
			return err
		}

		payload, err := encodeRecord(job.Payload)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE projects SET synced_revision = ?, synced_payload = ?
			WHERE id = ? AND synced_revision < ?
		`, job.Revision, payload, job.ProjectID, job.Revision)
		if err != nil {
			return fmt.Errorf("failed to record synced revision: %w", err)
		}
		return nil
	})
}

// RecordAttempt stores the attempt count and error of a failed delivery.
func (r *JobRepository) RecordAttempt(ctx context.Context, jobID string, attempts int, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_jobs SET attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, attempts, lastErr, r.now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to record sync attempt: %w", err)
	}
	return nil
}

// DeadLetter moves a pending job to the dead-letter list. It returns
// repository.ErrNotFound when the job is no longer pending.
func (r *JobRepository) DeadLetter(ctx context.Context, jobID string, attempts int, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sync_jobs SET status = 'dead', attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, attempts, reason, r.now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to dead-letter sync job: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to dead-letter sync job: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeadLetters lists dead-lettered jobs of a project in enqueue order.
func (r *JobRepository) DeadLetters(ctx context.Context, projectID string) ([]cloudsync.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM sync_jobs
		WHERE project_id = ? AND status = 'dead'
		ORDER BY seq
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	var jobs []cloudsync.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync jobs: %w", err)
	}
	return jobs, nil
}

// Requeue returns dead-lettered jobs to the queue with a fresh attempt budget.
// Jobs already overtaken by a synced revision are superseded instead.
func (r *JobRepository) Requeue(ctx context.Context, projectID string) (int, error) {
	now := r.now().UTC()
	var requeued int64
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE sync_jobs SET status = 'superseded', updated_at = ?
			WHERE project_id = ? AND status = 'dead'
			AND revision <= (SELECT synced_revision FROM projects WHERE id = ?)
		`, now, projectID, projectID)
		if err != nil {
			return fmt.Errorf("failed to supersede stale dead letters: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE sync_jobs SET status = 'pending', attempts = 0, updated_at = ?
			WHERE project_id = ? AND status = 'dead'
		`, now, projectID)
		if err != nil {
			return fmt.Errorf("failed to requeue dead letters: %w", err)
		}
		requeued, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(requeued), nil
}

// Counts summarizes the queue of a project.
func (r *JobRepository) Counts(ctx context.Context, projectID string) (cloudsync.Counts, error) {
	var counts cloudsync.Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'dead' THEN 1 ELSE 0 END), 0)
		FROM sync_jobs
		WHERE project_id = ?
	`, projectID).Scan(&counts.Pending, &counts.Dead)
	if err != nil {
		return counts, fmt.Errorf("failed to count sync jobs: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT last_error FROM sync_jobs
		WHERE project_id = ? AND status IN ('pending', 'dead') AND last_error != ''
		ORDER BY seq DESC
		LIMIT 1
	`, projectID).Scan(&counts.LastError)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return counts, fmt.Errorf("failed to read last sync error: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT synced_revision FROM projects WHERE id = ?`, projectID,
	).Scan(&counts.LastSyncedRevision)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return counts, fmt.Errorf("failed to read synced revision: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*cloudsync.Job, error) {
	var job cloudsync.Job
	var payload string
	if err := row.Scan(
		&job.Seq,
		&job.ID,
		&job.ProjectID,
		&job.Revision,
		&payload,
		&job.Status,
		&job.Attempts,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec, err := decodeRecord(payload)
	if err != nil {
		return nil, err
	}
	job.Payload = rec
	return &job, nil
}
