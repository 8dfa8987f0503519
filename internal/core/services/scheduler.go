package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driving"
)

// Scheduler triggers automatic refreshes on an interval, restricted to an
// active hour window so runs land inside business hours.
type Scheduler struct {
	refresh  driving.RefreshService
	logger   *slog.Logger
	now      func() time.Time
	interval time.Duration
	// Active window in local hours, inclusive start, exclusive end.
	startHour int
	endHour   int

	lastAttempt time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// SchedulerConfig holds dependencies for Scheduler.
type SchedulerConfig struct {
	Refresh   driving.RefreshService
	Logger    *slog.Logger
	Now       func() time.Time
	Interval  time.Duration
	StartHour int
	EndHour   int
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	return &Scheduler{
		refresh:   cfg.Refresh,
		logger:    logger,
		now:       now,
		interval:  interval,
		startHour: cfg.StartHour,
		endHour:   cfg.EndHour,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the scheduling loop. The loop ticks every minute and
// fires a refresh when the interval has elapsed inside the active window.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started",
		"interval", s.interval, "window_start_hour", s.startHour, "window_end_hour", s.endHour)

	go func() {
		defer close(s.doneCh)

		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	if !s.withinWindow(now) {
		return
	}
	if !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.interval {
		return
	}

	s.lastAttempt = now
	err := s.refresh.Trigger(ctx, nil)
	switch {
	case err == nil:
		s.logger.Info("scheduled refresh triggered")
	case errors.Is(err, domain.ErrRefreshInProgress):
		s.logger.Debug("scheduled refresh skipped, run already in progress")
	default:
		s.logger.Error("scheduled refresh failed to start", "error", err)
	}
}

// withinWindow reports whether t falls inside the active hour window. A
// zero-width window means always active.
func (s *Scheduler) withinWindow(t time.Time) bool {
	if s.startHour == s.endHour {
		return true
	}
	hour := t.Hour()
	if s.startHour < s.endHour {
		return hour >= s.startHour && hour < s.endHour
	}
	// Window wraps midnight.
	return hour >= s.startHour || hour < s.endHour
}
