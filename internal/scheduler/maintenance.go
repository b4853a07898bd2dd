// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrBusy is returned by RunNow while a previous run is still in progress.
var ErrBusy = errors.New("maintenance already running")

// Job is one maintenance run.
type Job func(ctx context.Context) error

// MaintenanceLogger records the outcome of a maintenance run.
type MaintenanceLogger interface {
	LogMaintenance(action, description string, metadata map[string]any, err error)
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := scheduleParser.Parse(schedule)
	return err
}

// MaintenanceScheduler runs a named job on a cron schedule, never overlapping
// with itself.
type MaintenanceScheduler struct {
	name     string
	schedule string
	job      Job
	logger   MaintenanceLogger
	timeout  time.Duration

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	isBusy    bool
}

// NewMaintenanceScheduler creates a scheduler for job. logger may be nil.
func NewMaintenanceScheduler(name, schedule string, job Job, logger MaintenanceLogger) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		name:     name,
		schedule: schedule,
		job:      job,
		logger:   logger,
		timeout:  10 * time.Minute,
		cron:     cron.New(cron.WithParser(scheduleParser)),
	}
}

// Start registers the job and starts the cron loop. An empty schedule
// disables the scheduler. Start stops the scheduler when ctx is cancelled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.schedule == "" {
		log.Printf("[SCHEDULER] %s: disabled", s.name)
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", s.name, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	log.Printf("[SCHEDULER] %s: started with schedule '%s'. Next run: %v", s.name, s.schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cron.Remove(s.entryID)
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Printf("[SCHEDULER] %s: stopped", s.name)
}

// RunNow triggers the job immediately and returns its error.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) error {
	return s.run(ctx)
}

// IsRunning reports whether the cron loop is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the job will next fire, or nil when stopped.
func (s *MaintenanceScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *MaintenanceScheduler) run(parent context.Context) error {
	s.mu.Lock()
	if s.isBusy {
		s.mu.Unlock()
		log.Printf("[SCHEDULER] %s: skipped (already running)", s.name)
		return ErrBusy
	}
	s.isBusy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isBusy = false
		s.mu.Unlock()
	}()

	// A run started just before shutdown still gets to finish.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.timeout)
	defer cancel()

	started := time.Now()
	err := s.job(ctx)
	elapsed := time.Since(started)

	if err != nil {
		log.Printf("[SCHEDULER] %s: failed after %v: %v", s.name, elapsed, err)
	} else {
		log.Printf("[SCHEDULER] %s: completed in %v", s.name, elapsed)
	}

	if s.logger != nil {
		s.logger.LogMaintenance(s.name, fmt.Sprintf("Scheduled %s run", s.name),
			map[string]any{"duration_ms": elapsed.Milliseconds()}, err)
	}
	return err
}
