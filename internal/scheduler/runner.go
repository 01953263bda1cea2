package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketsync/internal/export"
	"marketsync/internal/joblog"
	"marketsync/internal/logger"
	"marketsync/internal/marketplace"
	"marketsync/internal/models"
	"marketsync/internal/repository"
	"marketsync/internal/workflow"
)

// recentLogCache is how many of a job's latest log entries are kept in
// memory for the detail view.
const recentLogCache = 50

// Collaborators are the external dependencies handed to every run.
type Collaborators struct {
	DB          *sql.DB
	Marketplace marketplace.Client
	Exporter    export.Exporter
	Erp         repository.ErpSource
	Logs        repository.LogStore
}

// Runner executes one job occurrence synchronously.
type Runner interface {
	Run(ctx context.Context, entry *jobEntry, args models.RunArgs)
}

// JobRunner executes a single job occurrence: drives the status state
// machine IDLE -> RUNNING -> SUCCESS|FAILED, runs the job's workflow and
// captures its log output.
type JobRunner struct {
	registry *workflow.Registry
	collab   Collaborators
	log      *logger.Logger
}

func NewJobRunner(registry *workflow.Registry, collab Collaborators, log *logger.Logger) *JobRunner {
	return &JobRunner{registry: registry, collab: collab, log: log}
}

// Run executes one occurrence synchronously. It never panics the caller:
// the outcome lands in the entry's status and the log sink.
func (r *JobRunner) Run(ctx context.Context, entry *jobEntry, args models.RunArgs) {
	desc := entry.descriptor()
	start := time.Now().UTC()

	entry.setStatus(func(st *models.JobStatus) {
		st.State = models.StateRunning
		st.LastRun = &start
		st.LastError = ""
	})

	jl := joblog.New(r.collab.Logs, r.log.Named("job"), desc.ID, string(desc.Type))
	jl.Started(ctx)

	runErr := r.execute(ctx, desc, args, jl)

	duration := time.Since(start)
	jl.Finished(ctx, runErr == nil, duration, runErr)

	entry.setStatus(func(st *models.JobStatus) {
		st.LastDuration = &duration
		if runErr != nil {
			st.State = models.StateFailed
			st.LastError = runErr.Error()
			return
		}
		st.State = models.StateSuccess
	})

	if recent, err := r.collab.Logs.Recent(ctx, desc.ID, recentLogCache); err == nil {
		entry.setRecent(recent)
	} else {
		r.log.Warnw("recent_log_refresh_failed", "job_id", desc.ID, "err", err)
	}
}

func (r *JobRunner) execute(ctx context.Context, desc models.JobDescriptor, args models.RunArgs, jl *joblog.JobLogger) error {
	wf, ok := r.registry.Lookup(desc.Type)
	if !ok {
		return fmt.Errorf("no workflow registered for job type %s", desc.Type)
	}

	rc := workflow.NewRunContext(desc.ID, args, jl, r.collab.DB,
		r.collab.Marketplace, r.collab.Exporter, r.collab.Erp)

	report, err := workflow.Run(ctx, wf, rc)
	if report != nil {
		ok, failed, skipped := 0, 0, 0
		for _, pr := range report.Phases {
			switch pr.Status {
			case workflow.PhaseOK:
				ok++
			case workflow.PhaseFailed:
				failed++
			case workflow.PhaseSkipped:
				skipped++
			}
		}
		jl.Infof(ctx, "phases: %d ok, %d failed, %d skipped", ok, failed, skipped)
	}
	return err
}
