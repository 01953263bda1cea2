package service

import (
	"context"
	"time"

	"marketsync/internal/models"
	"marketsync/internal/repository"
	"marketsync/internal/scheduler"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Jobs exposes the scheduled-job control surface.
type Jobs interface {
	List() []models.JobView
	Get(jobID string) (models.JobView, error)
	Add(jobType models.JobType, intervalMinutes int, description string, enabled bool) (string, error)
	TriggerNow(jobID string, override *models.RunArgs) error
	UpdateSchedule(jobID string, intervalMinutes int) error
	Toggle(jobID string, enabled bool) error
}

// Logs exposes the persisted run logs with filtering access.
type Logs interface {
	List(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error)
	Recent(ctx context.Context, jobID string, limit int) ([]models.LogEntry, error)
	Stats(ctx context.Context, jobID string, days int) (models.LogStats, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

type Service struct {
	Jobs
	Logs
	Authorization
}

// AuthConfig carries the token settings from the config file.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

func NewService(repos *repository.Repository, sched *scheduler.Scheduler, auth AuthConfig) *Service {
	return &Service{
		Jobs:          NewJobService(sched),
		Logs:          NewLogService(repos.Logs),
		Authorization: NewAuthService(repos.Auth, auth),
	}
}
