// Package reconcile rebuilds reward state from the contribution history.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/models"
	"github.com/andygrunwald/fuelradar/internal/rewards"
	"github.com/andygrunwald/fuelradar/internal/store"
)

// Report summarizes a reconciliation run.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Users     int           `json:"users"`
	Corrected int           `json:"corrected"`
	Failed    int           `json:"failed"`
}

// Reconciler replays contributions and repairs reward rows that drifted,
// for example after a reward write failed while the station write succeeded.
type Reconciler struct {
	store  store.Store
	logger zerolog.Logger

	mu      sync.RWMutex
	last    *Report
	running bool
}

// New creates a Reconciler.
func New(st store.Store, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  st,
		logger: logger.With().Str("component", "reconcile").Logger(),
	}
}

// ReconcileAll reconciles every known user. A failure on one user is logged
// and counted; the run continues with the next user.
func (r *Reconciler) ReconcileAll(ctx context.Context) (Report, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return Report{}, errors.New("reconciliation already running")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	report := Report{StartedAt: time.Now()}

	users, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("listing users: %w", err)
	}

	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Users++
		corrected, err := r.ReconcileUser(ctx, userID)
		if err != nil {
			report.Failed++
			r.logger.Error().Err(err).Str("user", userID).Msg("failed to reconcile user")
			continue
		}
		if corrected {
			report.Corrected++
		}
	}
	report.Duration = time.Since(report.StartedAt)

	r.mu.Lock()
	r.last = &report
	r.mu.Unlock()

	r.logger.Info().
		Int("users", report.Users).
		Int("corrected", report.Corrected).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("reconciliation completed")

	return report, nil
}

// ReconcileUser recomputes one user's reward state and writes it back when the
// history earns more points than the stored row holds. Rows ahead of the
// history are left alone: a lost audit record must not take points away.
// It reports whether a correction was written.
func (r *Reconciler) ReconcileUser(ctx context.Context, userID string) (bool, error) {
	history, err := r.store.ListContributions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("listing contributions: %w", err)
	}

	stored, err := r.store.GetUserRewardState(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("reading reward state: %w", err)
	}

	want := rewards.Replay(history)
	if sameProgress(stored, want) {
		return false, nil
	}
	if want.TotalPoints <= stored.TotalPoints {
		r.logger.Debug().
			Str("user", userID).
			Int("stored_points", stored.TotalPoints).
			Int("replayed_points", want.TotalPoints).
			Msg("reward state ahead of history, leaving it")
		return false, nil
	}

	want.Version = stored.Version
	if err := r.store.UpdateUserRewardState(ctx, userID, want); err != nil {
		// A concurrent award moved the row; the next run will look again.
		return false, fmt.Errorf("writing reward state: %w", err)
	}

	r.logger.Warn().
		Str("user", userID).
		Int("stored_points", stored.TotalPoints).
		Int("replayed_points", want.TotalPoints).
		Int("contributions", len(history)).
		Msg("corrected drifted reward state")

	return true, nil
}

// LastReport returns the report of the last completed run.
func (r *Reconciler) LastReport() *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	report := *r.last
	return &report
}

func sameProgress(a, b models.RewardState) bool {
	a.Version, b.Version = 0, 0
	return a == b
}
