package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketsync/internal/models"
	"marketsync/internal/repository"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

var (
	errInvalidDays  = errors.New("days must be at least 1")
	errInvalidLimit = errors.New("limit must be positive")
)

type LogService struct {
	logs repository.LogStore
}

func NewLogService(logs repository.LogStore) *LogService {
	return &LogService{logs: logs}
}

// normalizeLevel trims spaces and uppercases the level filter.
func normalizeLevel(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeFilter prepares query parameters and clamps the page size.
func normalizeFilter(f models.LogFilter) (models.LogFilter, error) {
	f.JobID = strings.TrimSpace(f.JobID)
	f.Level = normalizeLevel(f.Level)
	switch f.Level {
	case "", models.LogInfo, models.LogWarning, models.LogError:
	default:
		return f, errors.New("unknown log level")
	}
	if f.Limit < 0 {
		return f, errInvalidLimit
	}
	if f.Limit == 0 {
		f.Limit = defaultLogLimit
	}
	if f.Limit > maxLogLimit {
		f.Limit = maxLogLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

func (s *LogService) List(ctx context.Context, f models.LogFilter) ([]models.LogEntry, error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return s.logs.List(ctx, f)
}

func (s *LogService) Recent(ctx context.Context, jobID string, limit int) ([]models.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return s.logs.Recent(ctx, strings.TrimSpace(jobID), limit)
}

func (s *LogService) Stats(ctx context.Context, jobID string, days int) (models.LogStats, error) {
	if days < 1 {
		return models.LogStats{}, errInvalidDays
	}
	return s.logs.Stats(ctx, strings.TrimSpace(jobID), days)
}

// Cleanup deletes entries older than the retention window and returns the
// number of rows removed.
func (s *LogService) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 1 {
		return 0, errInvalidDays
	}
	return s.logs.Cleanup(ctx, time.Duration(olderThanDays)*24*time.Hour)
}
