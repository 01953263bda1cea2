package models

import "time"

// Log levels as stored in the log sink.
const (
	LogInfo    = "INFO"
	LogWarning = "WARNING"
	LogError   = "ERROR"
)

// LogEntry is one append-only record in the job log sink.
type LogEntry struct {
	ID        string     `json:"id"`
	JobID     string     `json:"job_id"`
	JobType   string     `json:"job_type"`
	Level     string     `json:"level"` // INFO | WARNING | ERROR
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
	Status    string     `json:"status,omitempty"` // terminal entries: SUCCESS | FAILED
	Duration  *float64   `json:"duration_seconds,omitempty"`
	ErrorText string     `json:"error_text,omitempty"`
}

// LogFilter narrows log queries.
type LogFilter struct {
	JobID  string
	Level  string
	Limit  int
	Offset int
}

// LogStats aggregates job outcomes over a window, for the dashboard.
type LogStats struct {
	JobID     string `json:"job_id,omitempty"`
	Days      int    `json:"days"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
	Errors    int    `json:"errors"`
}
