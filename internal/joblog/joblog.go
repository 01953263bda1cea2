// Package joblog provides per-run structured log capture. Every entry is
// appended to the durable log sink; ERROR entries are mirrored to the
// application logger so no caught error is silently dropped.
package joblog

import (
	"context"
	"fmt"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/repository"
)

// JobLogger captures log output scoped to one job run.
type JobLogger struct {
	sink    repository.LogStore
	app     *logger.Logger
	jobID   string
	jobType string
}

func New(sink repository.LogStore, app *logger.Logger, jobID, jobType string) *JobLogger {
	return &JobLogger{sink: sink, app: app, jobID: jobID, jobType: jobType}
}

// Infof appends an INFO entry.
func (l *JobLogger) Infof(ctx context.Context, format string, args ...any) {
	l.append(ctx, models.LogEntry{Level: models.LogInfo, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a WARNING entry.
func (l *JobLogger) Warnf(ctx context.Context, format string, args ...any) {
	l.append(ctx, models.LogEntry{Level: models.LogWarning, Message: fmt.Sprintf(format, args...)})
}

// Errorf appends an ERROR entry and mirrors it to the application logger.
func (l *JobLogger) Errorf(ctx context.Context, format string, args ...any) {
	l.append(ctx, models.LogEntry{Level: models.LogError, Message: fmt.Sprintf(format, args...)})
}

// Started appends the opening entry of a run.
func (l *JobLogger) Started(ctx context.Context) {
	l.Infof(ctx, "job started: %s", l.jobType)
}

// Finished appends the terminal entry of a run, carrying status, duration
// and error detail for status queries.
func (l *JobLogger) Finished(ctx context.Context, success bool, duration time.Duration, runErr error) {
	e := models.LogEntry{
		Level:   models.LogInfo,
		Status:  string(models.StateSuccess),
		Message: "job finished: SUCCESS",
	}
	if !success {
		e.Level = models.LogError
		e.Status = string(models.StateFailed)
		e.Message = "job finished: FAILED"
		if runErr != nil {
			e.ErrorText = runErr.Error()
			e.Message = "job finished: FAILED: " + runErr.Error()
		}
	}
	secs := duration.Seconds()
	e.Duration = &secs
	l.append(ctx, e)
}

func (l *JobLogger) append(ctx context.Context, e models.LogEntry) {
	e.JobID = l.jobID
	e.JobType = l.jobType
	if err := l.sink.Append(ctx, e); err != nil && l.app != nil {
		l.app.Errorw("job_log_append_failed", "job_id", l.jobID, "err", err)
	}
	if l.app == nil {
		return
	}
	switch e.Level {
	case models.LogError:
		l.app.Errorw(e.Message, "job_id", l.jobID, "job_type", l.jobType)
	case models.LogWarning:
		l.app.Warnw(e.Message, "job_id", l.jobID, "job_type", l.jobType)
	default:
		l.app.Infow(e.Message, "job_id", l.jobID, "job_type", l.jobType)
	}
}
