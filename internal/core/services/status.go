package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// StatusTracker owns the single refresh status record. It is the only
// writer; the HTTP layer reads through Snapshot. The last-successful
// timestamp only advances when a run's outcome is full success, so data
// age always reflects the last run that passed every sanity check.
type StatusTracker struct {
	store  driven.RefreshStatusStore
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	snap domain.RefreshStatusSnapshot
}

// StatusTrackerConfig holds dependencies for StatusTracker.
type StatusTrackerConfig struct {
	Store  driven.RefreshStatusStore
	Logger *slog.Logger
	Now    func() time.Time
}

// NewStatusTracker creates a tracker, reloading any persisted snapshot so
// an interrupted run remains visible after a restart.
func NewStatusTracker(ctx context.Context, cfg StatusTrackerConfig) (*StatusTracker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	t := &StatusTracker{store: cfg.Store, logger: logger, now: now}

	if cfg.Store != nil {
		snap, err := cfg.Store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			t.snap = *snap
		}
	}

	return t, nil
}

// Start marks a run as in progress and records its start time.
func (t *StatusTracker) Start(ctx context.Context, message string) time.Time {
	t.mu.Lock()
	started := t.now()
	t.snap.IsRunning = true
	t.snap.RunStartedAt = &started
	t.snap.Progress = 0
	t.snap.Message = message
	t.mu.Unlock()

	t.persist(ctx)
	return started
}

// UpdateProgress records progress as a fraction in [0, 1].
func (t *StatusTracker) UpdateProgress(ctx context.Context, fraction float64, message string) {
	t.mu.Lock()
	if fraction >= 0 {
		t.snap.Progress = fraction
	}
	if message != "" {
		t.snap.Message = message
	}
	t.mu.Unlock()

	t.persist(ctx)
}

// Complete finalizes the run. The last-successful timestamp advances only
// on a full success; partial and failed runs leave it untouched.
func (t *StatusTracker) Complete(ctx context.Context, outcome domain.RunOutcome, branches map[string]domain.BranchOutcome, reports map[string]domain.ReportStatus) {
	t.mu.Lock()
	t.snap.IsRunning = false
	t.snap.Progress = 1
	t.snap.Message = ""
	t.snap.Branches = branches
	t.snap.Reports = reports
	if outcome == domain.RunSuccess {
		completed := t.now()
		t.snap.LastSuccessfulAt = &completed
	}
	t.mu.Unlock()

	t.persist(ctx)
	t.logger.Info("refresh finalized", "outcome", outcome)
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() domain.RefreshStatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// DataAge returns the age of the last trustworthy refresh.
func (t *StatusTracker) DataAge() domain.DataAge {
	t.mu.Lock()
	last := t.snap.LastSuccessfulAt
	t.mu.Unlock()
	return domain.AgeSince(last, t.now())
}

func (t *StatusTracker) persist(ctx context.Context) {
	if t.store == nil {
		return
	}
	t.mu.Lock()
	snap := t.snap
	t.mu.Unlock()
	if err := t.store.Save(ctx, &snap); err != nil {
		t.logger.Warn("failed to persist refresh status", "error", err)
	}
}
