package models

import "time"

// JobType identifies a recurring workflow.
type JobType string

const (
	JobSyncOrders    JobType = "sync_orders"
	JobSyncInventory JobType = "sync_inventory"
)

// ValidJobType reports whether t names a registered workflow.
func ValidJobType(t JobType) bool {
	switch t {
	case JobSyncOrders, JobSyncInventory:
		return true
	}
	return false
}

// JobState is the observable lifecycle state of a job.
type JobState string

const (
	StateIdle    JobState = "IDLE"
	StateRunning JobState = "RUNNING"
	StateSuccess JobState = "SUCCESS"
	StateFailed  JobState = "FAILED"
)

// JobDescriptor is the durable definition of a scheduled job. It is owned
// by the scheduler and mutated only through its API.
type JobDescriptor struct {
	ID          string        `json:"id"`
	Type        JobType       `json:"type"`
	Interval    time.Duration `json:"interval"`
	Enabled     bool          `json:"enabled"`
	Description string        `json:"description"`
}

// JobStatus is the last known outcome of a job. Exactly one runner writes
// it per job id; readers get a copy.
type JobStatus struct {
	State        JobState       `json:"state"`
	LastRun      *time.Time     `json:"last_run,omitempty"`
	NextRun      *time.Time     `json:"next_run,omitempty"`
	LastError    string         `json:"last_error,omitempty"`
	LastDuration *time.Duration `json:"last_duration,omitempty"`
}

// RunArgs carries per-fire parameters. A trigger-now call may override the
// defaults for exactly one fire.
type RunArgs struct {
	OrderStatus int    `json:"order_status,omitempty"` // marketplace parent order status filter
	DaysBack    int    `json:"days_back,omitempty"`
	Mode        string `json:"mode,omitempty"` // inventory: "quick" or "full"
}

// DefaultRunArgs matches the original scheduled defaults.
func DefaultRunArgs() RunArgs {
	return RunArgs{OrderStatus: 2, DaysBack: 7, Mode: "quick"}
}

// JobConfig is the persisted form of a job descriptor, stored as an
// ordered list and rewritten on every schedule/enable change.
type JobConfig struct {
	Type            JobType `json:"job_type"`
	IntervalMinutes int     `json:"interval_minutes"`
	Enabled         bool    `json:"enabled"`
	Description     string  `json:"description"`
}

// JobView is the composite returned by status queries.
type JobView struct {
	Descriptor JobDescriptor `json:"descriptor"`
	Status     JobStatus     `json:"status"`
	RecentLogs []LogEntry    `json:"recent_logs,omitempty"`
}
