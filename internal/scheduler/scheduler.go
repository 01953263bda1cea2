// Package scheduler owns the recurring jobs: registration, timers,
// single-instance enforcement and rescheduling.
//
// Rescheduling rule: after a run finishes, the next fire is armed from
// the completion time (next_run = completion + interval), never from the
// start time and never on a fixed cadence. This trades a slightly longer
// effective period (run duration + interval) for freedom from drift and
// from overlapping runs.
//
// No per-phase deadline is enforced here yet; every run receives a
// context, so a stalled remote call blocks its own worker until a
// deadline is added. That hardening is required before a phase can be
// trusted to hang.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/models"
	"marketsync/internal/repository"
)

// jobEntry is the scheduler's mutable state for one job id.
type jobEntry struct {
	mu       sync.Mutex
	desc     models.JobDescriptor
	status   models.JobStatus
	timer    *time.Timer
	running  bool
	override *models.RunArgs
	recent   []models.LogEntry
}

func (e *jobEntry) setStatus(apply func(*models.JobStatus)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	apply(&e.status)
}

func (e *jobEntry) descriptor() models.JobDescriptor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.desc
}

func (e *jobEntry) setRecent(entries []models.LogEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recent = entries
}

func (e *jobEntry) view(withLogs bool) models.JobView {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := models.JobView{Descriptor: e.desc, Status: e.status}
	if withLogs {
		v.RecentLogs = append([]models.LogEntry(nil), e.recent...)
	}
	return v
}

// Scheduler fires registered jobs on their intervals. At most one run per
// job id is active at a time; a fire during an active run is dropped and
// the timer re-armed (coalescing, never queueing).
type Scheduler struct {
	mu    sync.Mutex
	jobs  map[string]*jobEntry
	order []string // insertion order, also the persisted order

	runner Runner
	store  repository.JobConfigStore
	log    *logger.Logger

	persistMu sync.Mutex // serializes schedule/enable writers

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(runner Runner, store repository.JobConfigStore, log *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:    make(map[string]*jobEntry),
		runner:  runner,
		store:   store,
		log:     log,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// LoadPersisted recreates descriptors from the persisted job list.
func (s *Scheduler) LoadPersisted(ctx context.Context) error {
	configs, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load persisted jobs: %w", err)
	}
	for _, jc := range configs {
		interval := time.Duration(jc.IntervalMinutes) * time.Minute
		if _, err := s.AddJob(jc.Type, interval, jc.Description, jc.Enabled); err != nil {
			return err
		}
	}
	return nil
}

// AddJob registers a new job and arms its timer. A disabled job is
// registered with its timer stopped.
func (s *Scheduler) AddJob(jobType models.JobType, interval time.Duration, description string, enabled bool) (string, error) {
	if !models.ValidJobType(jobType) {
		return "", fmt.Errorf("unknown job type %q", jobType)
	}
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}

	s.mu.Lock()
	id := s.uniqueIDLocked(jobType)
	entry := &jobEntry{
		desc: models.JobDescriptor{
			ID:          id,
			Type:        jobType,
			Interval:    interval,
			Enabled:     enabled,
			Description: description,
		},
		status: models.JobStatus{State: models.StateIdle},
	}
	entry.timer = time.AfterFunc(interval, func() { s.fire(id, false) })
	if enabled {
		next := time.Now().UTC().Add(interval)
		entry.status.NextRun = &next
	} else {
		entry.timer.Stop()
	}
	s.jobs[id] = entry
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.log.Infow("job_registered", "job_id", id, "interval", interval.String(), "enabled", enabled)
	return id, s.persist(context.Background())
}

// uniqueIDLocked derives a job id from the type and the creation time.
// Re-adding the same type yields a new descriptor.
func (s *Scheduler) uniqueIDLocked(jobType models.JobType) string {
	base := fmt.Sprintf("%s_%d", jobType, time.Now().Unix())
	id := base
	for n := 1; ; n++ {
		if _, exists := s.jobs[id]; !exists {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// TriggerNow cancels the pending timer and fires immediately with the
// given override args, preserving the interval for later fires. If a run
// is active the override applies to the next fire only; the current run
// is never interrupted and no second instance is created.
func (s *Scheduler) TriggerNow(jobID string, override *models.RunArgs) error {
	entry, err := s.lookup(jobID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.override = override
	if entry.running {
		entry.mu.Unlock()
		s.log.Infow("job_trigger_deferred", "job_id", jobID, "reason", "run in progress")
		return nil
	}
	entry.timer.Stop()
	entry.mu.Unlock()

	s.fire(jobID, true)
	return nil
}

// UpdateSchedule re-arms the timer with a new interval and persists it.
// A run currently in progress is unaffected.
func (s *Scheduler) UpdateSchedule(jobID string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	entry, err := s.lookup(jobID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.desc.Interval = interval
	if entry.desc.Enabled && !entry.running {
		entry.timer.Reset(interval)
		next := time.Now().UTC().Add(interval)
		entry.status.NextRun = &next
	}
	entry.mu.Unlock()

	s.log.Infow("job_rescheduled", "job_id", jobID, "interval", interval.String())
	return s.persist(context.Background())
}

// Toggle pauses or resumes the timer without touching an in-flight run.
func (s *Scheduler) Toggle(jobID string, enabled bool) error {
	entry, err := s.lookup(jobID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.desc.Enabled = enabled
	if enabled {
		if !entry.running {
			entry.timer.Reset(entry.desc.Interval)
			next := time.Now().UTC().Add(entry.desc.Interval)
			entry.status.NextRun = &next
		}
	} else {
		entry.timer.Stop()
		entry.status.NextRun = nil
	}
	entry.mu.Unlock()

	s.log.Infow("job_toggled", "job_id", jobID, "enabled", enabled)
	return s.persist(context.Background())
}

// List returns all jobs in registration order.
func (s *Scheduler) List() []models.JobView {
	s.mu.Lock()
	ids := append([]string(nil), s.order...)
	s.mu.Unlock()

	out := make([]models.JobView, 0, len(ids))
	for _, id := range ids {
		if entry, err := s.lookup(id); err == nil {
			out = append(out, entry.view(false))
		}
	}
	return out
}

// Get returns one job with its cached recent logs.
func (s *Scheduler) Get(jobID string) (models.JobView, error) {
	entry, err := s.lookup(jobID)
	if err != nil {
		return models.JobView{}, err
	}
	return entry.view(true), nil
}

// Stop cancels run contexts, stops all timers and waits for in-flight
// runs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	for _, entry := range s.jobs {
		entry.mu.Lock()
		entry.timer.Stop()
		entry.mu.Unlock()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) lookup(jobID string) (*jobEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %q not found", jobID)
	}
	return entry, nil
}

// fire starts one run unless the job is paused (manual fires ignore the
// pause) or a run is already active, in which case the fire is dropped
// and the timer re-armed one full interval out.
func (s *Scheduler) fire(jobID string, manual bool) {
	entry, err := s.lookup(jobID)
	if err != nil {
		return
	}

	entry.mu.Lock()
	if !entry.desc.Enabled && !manual {
		entry.mu.Unlock()
		return
	}
	if entry.running {
		entry.timer.Reset(entry.desc.Interval)
		next := time.Now().UTC().Add(entry.desc.Interval)
		entry.status.NextRun = &next
		entry.mu.Unlock()
		s.log.Warnw("job_fire_coalesced", "job_id", jobID)
		return
	}
	entry.running = true
	args := models.DefaultRunArgs()
	if entry.override != nil {
		args = *entry.override
		entry.override = nil
	}
	entry.mu.Unlock()

	s.wg.Add(1)
	go s.execute(entry, args)
}

// execute runs one occurrence on its own worker and re-arms the timer
// from the completion time.
func (s *Scheduler) execute(entry *jobEntry, args models.RunArgs) {
	defer s.wg.Done()

	s.runner.Run(s.baseCtx, entry, args)

	completion := time.Now().UTC()
	entry.mu.Lock()
	entry.running = false
	if entry.desc.Enabled {
		entry.timer.Reset(entry.desc.Interval)
		next := completion.Add(entry.desc.Interval)
		entry.status.NextRun = &next
	} else {
		entry.status.NextRun = nil
	}
	entry.mu.Unlock()
}

// persist rewrites the durable job list. Writers are serialized so a
// schedule change racing a toggle cannot interleave partial writes.
func (s *Scheduler) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	configs := make([]models.JobConfig, 0, len(s.order))
	for _, id := range s.order {
		entry := s.jobs[id]
		entry.mu.Lock()
		configs = append(configs, models.JobConfig{
			Type:            entry.desc.Type,
			IntervalMinutes: int(entry.desc.Interval / time.Minute),
			Enabled:         entry.desc.Enabled,
			Description:     entry.desc.Description,
		})
		entry.mu.Unlock()
	}
	s.mu.Unlock()

	if err := s.store.SaveAll(ctx, configs); err != nil {
		s.log.Errorw("job_config_persist_failed", "err", err)
		return err
	}
	return nil
}
