package service

import (
	"errors"
	"time"

	"marketsync/internal/models"
	"marketsync/internal/scheduler"
)

var errInvalidInterval = errors.New("interval must be at least one minute")

// JobService is a thin validation layer over the scheduler; the scheduler
// owns all timing and state-machine logic.
type JobService struct {
	sched *scheduler.Scheduler
}

func NewJobService(sched *scheduler.Scheduler) *JobService {
	return &JobService{sched: sched}
}

func (s *JobService) List() []models.JobView { return s.sched.List() }

func (s *JobService) Get(jobID string) (models.JobView, error) { return s.sched.Get(jobID) }

func (s *JobService) Add(jobType models.JobType, intervalMinutes int, description string, enabled bool) (string, error) {
	if intervalMinutes < 1 {
		return "", errInvalidInterval
	}
	return s.sched.AddJob(jobType, time.Duration(intervalMinutes)*time.Minute, description, enabled)
}

func (s *JobService) TriggerNow(jobID string, override *models.RunArgs) error {
	if override != nil {
		if err := validateRunArgs(*override); err != nil {
			return err
		}
	}
	return s.sched.TriggerNow(jobID, override)
}

func (s *JobService) UpdateSchedule(jobID string, intervalMinutes int) error {
	if intervalMinutes < 1 {
		return errInvalidInterval
	}
	return s.sched.UpdateSchedule(jobID, time.Duration(intervalMinutes)*time.Minute)
}

func (s *JobService) Toggle(jobID string, enabled bool) error {
	return s.sched.Toggle(jobID, enabled)
}

func validateRunArgs(args models.RunArgs) error {
	if args.DaysBack < 1 {
		return errors.New("days_back must be at least 1")
	}
	switch args.Mode {
	case "quick", "full":
	default:
		return errors.New(`mode must be "quick" or "full"`)
	}
	switch args.OrderStatus {
	case models.OrderStatusProcessing, models.OrderStatusCancelled,
		models.OrderStatusShipped, models.OrderStatusDelivered:
	default:
		return errors.New("unknown order status")
	}
	return nil
}
