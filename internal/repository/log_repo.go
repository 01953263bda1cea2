package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"marketsync/internal/models"

	"github.com/google/uuid"
)

type LogSQLite struct {
	db DBTX
}

func NewLogSQLite(db DBTX) *LogSQLite { return &LogSQLite{db: db} }

var _ LogStore = (*LogSQLite)(nil)

const insertLogSQL = `
		INSERT INTO job_logs (id, job_id, job_type, level, message, status, duration_seconds, error_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

const selectLogColumns = `id, job_id, job_type, level, message, status, duration_seconds, error_text, created_at`

// Append inserts a new log entry. If ID or CreatedAt are empty, they're set.
func (r *LogSQLite) Append(ctx context.Context, e models.LogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}

	var status, errorText *string
	if e.Status != "" {
		status = &e.Status
	}
	if e.ErrorText != "" {
		errorText = &e.ErrorText
	}

	_, err := r.db.ExecContext(ctx, insertLogSQL,
		e.ID,
		e.JobID,
		e.JobType,
		strings.ToUpper(strings.TrimSpace(e.Level)),
		e.Message,
		status,
		e.Duration,
		errorText,
		e.CreatedAt.Format("2006-01-02 15:04:05.000"),
	)
	return err
}

// Recent returns the newest entries for a job, newest first.
func (r *LogSQLite) Recent(ctx context.Context, jobID string, limit int) ([]models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectLogColumns+`
		FROM job_logs WHERE job_id = ?
		ORDER BY created_at DESC LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogRows(rows)
}

// List returns entries matching the filter, newest first.
func (r *LogSQLite) List(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error) {
	var (
		conds []string
		args  []any
	)
	if f.JobID != "" {
		conds = append(conds, "job_id = ?")
		args = append(args, f.JobID)
	}
	if lvl := strings.ToUpper(strings.TrimSpace(f.Level)); lvl != "" {
		conds = append(conds, "level = ?")
		args = append(args, lvl)
	}

	q := `SELECT ` + selectLogColumns + ` FROM job_logs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLogRows(rows)
}

// Stats aggregates terminal entries over the last N days.
func (r *LogSQLite) Stats(ctx context.Context, jobID string, days int) (models.LogStats, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02 15:04:05.000")

	q := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'SUCCESS' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'FAILED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN level = 'ERROR' THEN 1 ELSE 0 END), 0)
		FROM job_logs WHERE created_at >= ?`
	args := []any{since}
	if jobID != "" {
		q += " AND job_id = ?"
		args = append(args, jobID)
	}

	st := models.LogStats{JobID: jobID, Days: days}
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&st.Successes, &st.Failures, &st.Errors); err != nil {
		return models.LogStats{}, err
	}
	return st, nil
}

// Cleanup deletes entries older than the given age and returns the count.
func (r *LogSQLite) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format("2006-01-02 15:04:05.000")
	res, err := r.db.ExecContext(ctx, `DELETE FROM job_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanLogRows(rows *sql.Rows) ([]models.LogEntry, error) {
	out := make([]models.LogEntry, 0, 64)
	for rows.Next() {
		var (
			e         models.LogEntry
			status    sql.NullString
			duration  sql.NullFloat64
			errorText sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.JobID, &e.JobType, &e.Level, &e.Message,
			&status, &duration, &errorText, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		if status.Valid {
			e.Status = status.String
		}
		if duration.Valid {
			d := duration.Float64
			e.Duration = &d
		}
		if errorText.Valid {
			e.ErrorText = errorText.String
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
