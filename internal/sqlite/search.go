package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
)

// SearchRepository implements project.Searcher for SQLite
type SearchRepository struct {
	db *DB
}

// NewSearchRepository creates a new SearchRepository
func NewSearchRepository(db *DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Search performs a full-text search over titles, descriptions and foundations
func (r *SearchRepository) Search(ctx context.Context, query string, opts project.ListOptions) ([]project.Summary, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	baseQuery := `
		SELECT i.id, i.title, i.description, i.current_stage, i.stage_status, i.provisional, i.revision, i.updated_at
		FROM projects_fts
		JOIN project_index i ON i.id = projects_fts.project_id
		WHERE projects_fts MATCH ?
	`
	args := []interface{}{match}
	conditions := []string{}

	if !opts.IncludeProvisional {
		conditions = append(conditions, "i.provisional = 0")
	}
	if opts.Stage != "" {
		conditions = append(conditions, "i.current_stage = ?")
		args = append(args, opts.Stage)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY rank"
	baseQuery, args = paginate(baseQuery, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}
