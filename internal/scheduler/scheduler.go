package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/stlalpha/tecnoter/internal/config"
	"github.com/stlalpha/tecnoter/internal/logging"
)

// Built-in job names referenced by events.json.
const (
	JobContentRefresh = "content-refresh"
	JobHostSample     = "host-sample"
)

// Job is a built-in task an event runs.
type Job func(ctx context.Context) error

// Scheduler manages scheduled event execution
type Scheduler struct {
	config         config.EventsConfig
	jobs           map[string]Job
	cron           *cron.Cron
	history        map[string]*EventHistory
	historyPath    string
	runningEvents  map[string]bool
	mu             sync.RWMutex
	concurrencySem chan struct{}
	ctx            context.Context
	cancel         context.CancelFunc
}

// NewScheduler creates a new event scheduler
func NewScheduler(cfg config.EventsConfig, historyPath string) *Scheduler {
	if cfg.MaxConcurrentEvents <= 0 {
		cfg.MaxConcurrentEvents = 3
	}

	history, err := LoadHistory(historyPath)
	if err != nil {
		log.Printf("WARN: Failed to load event history from %s: %v", historyPath, err)
		history = make(map[string]*EventHistory)
	}

	return &Scheduler{
		config:         cfg,
		jobs:           make(map[string]Job),
		history:        history,
		historyPath:    historyPath,
		runningEvents:  make(map[string]bool),
		concurrencySem: make(chan struct{}, cfg.MaxConcurrentEvents),
		ctx:            context.Background(),
	}
}

// DefaultEvents is used when events.json is absent or disabled: refresh
// content on the configured schedule and sample the host every 30s.
func DefaultEvents(refreshSchedule string) config.EventsConfig {
	return config.EventsConfig{
		Enabled:             true,
		MaxConcurrentEvents: 2,
		Events: []config.EventConfig{
			{ID: "refresh", Name: "Content refresh", Schedule: refreshSchedule, Job: JobContentRefresh, TimeoutSeconds: 30, Enabled: true},
			{ID: "host", Name: "Host sample", Schedule: "*/30 * * * * *", Job: JobHostSample, TimeoutSeconds: 10, Enabled: true},
		},
	}
}

// Register binds a job name to its implementation. Call before Start.
func (s *Scheduler) Register(name string, job Job) {
	s.mu.Lock()
	s.jobs[name] = job
	s.mu.Unlock()
}

// Start begins the scheduler with the given context and blocks until it
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	s.cron = cron.New(cron.WithSeconds())

	enabledCount := 0
	for _, event := range s.config.Events {
		if !event.Enabled {
			logging.Debug("Event '%s' (%s) is disabled, skipping", event.ID, event.Name)
			continue
		}

		if err := s.scheduleEvent(event); err != nil {
			log.Printf("ERROR: Failed to schedule event '%s' (%s): %v", event.ID, event.Name, err)
		} else {
			enabledCount++
			log.Printf("INFO: Event '%s' (%s) scheduled: %s", event.ID, event.Name, event.Schedule)
		}
	}

	if enabledCount == 0 {
		log.Printf("WARN: No enabled events to schedule")
		return
	}

	s.cron.Start()
	log.Printf("INFO: Event scheduler running with %d enabled events (max concurrent: %d)",
		enabledCount, s.config.MaxConcurrentEvents)

	<-s.ctx.Done()

	log.Printf("INFO: Event scheduler stopping...")
	s.Stop()
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	if s.cron != nil {
		cronCtx := s.cron.Stop()
		<-cronCtx.Done()
		log.Printf("INFO: All scheduled events completed")
	}

	s.mu.RLock()
	err := SaveHistory(s.historyPath, s.history)
	s.mu.RUnlock()
	if err != nil {
		log.Printf("ERROR: Failed to save event history: %v", err)
	} else {
		log.Printf("INFO: Event history saved to %s", s.historyPath)
	}
}

// scheduleEvent registers an event with the cron scheduler
func (s *Scheduler) scheduleEvent(event config.EventConfig) error {
	s.mu.RLock()
	_, ok := s.jobs[event.Job]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", event.Job)
	}
	_, err := s.cron.AddFunc(event.Schedule, func() {
		s.executeEventWithConcurrency(event)
	})
	return err
}

// executeEventWithConcurrency executes an event with concurrency control
func (s *Scheduler) executeEventWithConcurrency(event config.EventConfig) {
	s.mu.Lock()
	if s.runningEvents[event.ID] {
		s.mu.Unlock()
		log.Printf("WARN: Event '%s' (%s) skipped: already running", event.ID, event.Name)
		return
	}
	s.mu.Unlock()

	select {
	case s.concurrencySem <- struct{}{}:
		defer func() { <-s.concurrencySem }()
	default:
		log.Printf("WARN: Event '%s' (%s) skipped: max concurrent events reached (%d)",
			event.ID, event.Name, s.config.MaxConcurrentEvents)
		return
	}

	s.mu.Lock()
	s.runningEvents[event.ID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.runningEvents, event.ID)
		s.mu.Unlock()
	}()

	result := s.executeEvent(s.ctx, event)
	s.updateHistory(result)
}

// RunNow executes the event with the given ID immediately, outside its
// schedule.
func (s *Scheduler) RunNow(id string) (EventResult, error) {
	for _, event := range s.config.Events {
		if event.ID == id {
			result := s.executeEvent(s.ctx, event)
			s.updateHistory(result)
			return result, nil
		}
	}
	return EventResult{}, fmt.Errorf("no event %q", id)
}

// GetHistory returns the current event history (for testing/monitoring)
func (s *Scheduler) GetHistory() map[string]*EventHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	historyCopy := make(map[string]*EventHistory)
	for k, v := range s.history {
		hCopy := *v
		historyCopy[k] = &hCopy
	}
	return historyCopy
}
