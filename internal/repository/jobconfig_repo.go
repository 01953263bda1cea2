package repository

import (
	"context"
	"database/sql"
	"fmt"

	"marketsync/internal/models"
)

// JobConfigSQLite persists the ordered job list. SaveAll rewrites the
// whole table; the scheduler serializes writers.
type JobConfigSQLite struct {
	db *sql.DB
}

func NewJobConfigSQLite(db *sql.DB) *JobConfigSQLite { return &JobConfigSQLite{db: db} }

var _ JobConfigStore = (*JobConfigSQLite)(nil)

// LoadAll returns the persisted jobs in insertion order.
func (r *JobConfigSQLite) LoadAll(ctx context.Context) ([]models.JobConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_type, interval_minutes, enabled, description
		FROM jobs ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("load job configs: %w", err)
	}
	defer rows.Close()

	var out []models.JobConfig
	for rows.Next() {
		var jc models.JobConfig
		if err := rows.Scan(&jc.Type, &jc.IntervalMinutes, &jc.Enabled, &jc.Description); err != nil {
			return nil, err
		}
		out = append(out, jc)
	}
	return out, rows.Err()
}

// SaveAll replaces the persisted job list atomically.
func (r *JobConfigSQLite) SaveAll(ctx context.Context, jobs []models.JobConfig) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save jobs: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}
	for _, jc := range jobs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (job_type, interval_minutes, enabled, description)
			VALUES (?, ?, ?, ?)`,
			string(jc.Type), jc.IntervalMinutes, jc.Enabled, jc.Description); err != nil {
			return fmt.Errorf("insert job %s: %w", jc.Type, err)
		}
	}
	return tx.Commit()
}
