package scheduler

import (
	"time"
)

// EventResult captures the outcome of one job run.
type EventResult struct {
	EventID   string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	TimedOut  bool
	Error     error
}

// EventHistory tracks past runs of one event.
type EventHistory struct {
	EventID      string    `json:"event_id"`
	LastRun      time.Time `json:"last_run"`
	LastStatus   string    `json:"last_status"` // "success", "failure", "timeout"
	LastError    string    `json:"last_error,omitempty"`
	LastDuration int64     `json:"last_duration_ms"`
	RunCount     int       `json:"run_count"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
}
