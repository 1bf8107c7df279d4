package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stlalpha/tecnoter/internal/config"
	"github.com/stlalpha/tecnoter/internal/logging"
)

// executeEvent runs a scheduled event's job and returns the result
func (s *Scheduler) executeEvent(ctx context.Context, event config.EventConfig) EventResult {
	result := EventResult{
		EventID:   event.ID,
		StartTime: time.Now(),
	}

	s.mu.RLock()
	job, ok := s.jobs[event.Job]
	s.mu.RUnlock()
	if !ok {
		result.EndTime = time.Now()
		result.Error = fmt.Errorf("unknown job %q", event.Job)
		log.Printf("ERROR: Event '%s' (%s) failed: %v", event.ID, event.Name, result.Error)
		return result
	}

	logging.Debug("Event '%s' (%s) started", event.ID, event.Name)

	jobCtx := ctx
	if event.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, time.Duration(event.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	err := runJob(jobCtx, job)
	result.EndTime = time.Now()
	duration := result.EndTime.Sub(result.StartTime)

	switch {
	case err == nil:
		result.Success = true
		logging.Debug("Event '%s' (%s) completed in %.3fs", event.ID, event.Name, duration.Seconds())
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(jobCtx.Err(), context.DeadlineExceeded):
		result.Error = fmt.Errorf("timed out after %ds: %w", event.TimeoutSeconds, context.DeadlineExceeded)
		result.TimedOut = true
		log.Printf("ERROR: Event '%s' (%s) timed out after %ds", event.ID, event.Name, event.TimeoutSeconds)
	default:
		result.Error = err
		log.Printf("ERROR: Event '%s' (%s) failed: %v", event.ID, event.Name, err)
	}
	return result
}

// runJob calls job, turning a panic into an error.
func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx)
}
