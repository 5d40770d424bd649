// Package scheduler runs the daily reward reconciliation.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/reconcile"
)

// Job is the work run once a day.
type Job interface {
	ReconcileAll(ctx context.Context) (reconcile.Report, error)
}

// Scheduler manages the daily reconciliation schedule.
type Scheduler struct {
	job           Job
	reconcileHour int
	runOnStart    bool
	logger        zerolog.Logger
	now           func() time.Time

	mu              sync.RWMutex
	nextReconcileAt time.Time
	lastReconcileAt *time.Time
	running         bool
}

// New creates a new Scheduler running job every day at reconcileHour.
func New(job Job, reconcileHour int, runOnStart bool, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		job:           job,
		reconcileHour: reconcileHour,
		runOnStart:    runOnStart,
		logger:        logger.With().Str("component", "scheduler").Logger(),
		now:           time.Now,
	}
}

// Start starts the scheduler and blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Int("reconcileHour", s.reconcileHour).Msg("starting scheduler")

	if s.runOnStart {
		s.runReconcile(ctx)
	}

	next := s.calculateNextRunTime()
	s.mu.Lock()
	s.nextReconcileAt = next
	s.mu.Unlock()

	s.logger.Info().
		Time("nextReconcile", next).
		Dur("duration", next.Sub(s.now())).
		Msg("next reconciliation scheduled")

	timer := time.NewTimer(next.Sub(s.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runReconcile(ctx)

			next = s.calculateNextRunTime()
			s.mu.Lock()
			s.nextReconcileAt = next
			s.mu.Unlock()

			s.logger.Info().
				Time("nextReconcile", next).
				Msg("next reconciliation scheduled")

			timer.Reset(next.Sub(s.now()))
		}
	}
}

// calculateNextRunTime returns the next occurrence of the reconcile hour.
func (s *Scheduler) calculateNextRunTime() time.Time {
	now := s.now()

	next := time.Date(now.Year(), now.Month(), now.Day(), s.reconcileHour, 0, 0, 0, now.Location())

	// Already passed today, schedule for tomorrow
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

func (s *Scheduler) runReconcile(ctx context.Context) {
	s.logger.Info().Msg("running scheduled reconciliation")

	now := s.now()
	s.mu.Lock()
	s.lastReconcileAt = &now
	s.mu.Unlock()

	report, err := s.job.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled reconciliation failed")
		return
	}

	s.logger.Info().
		Int("users", report.Users).
		Int("corrected", report.Corrected).
		Msg("scheduled reconciliation completed")
}

// NextReconcileAt returns the time of the next scheduled run.
func (s *Scheduler) NextReconcileAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextReconcileAt
}

// LastReconcileAt returns the time of the last run.
func (s *Scheduler) LastReconcileAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReconcileAt
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
