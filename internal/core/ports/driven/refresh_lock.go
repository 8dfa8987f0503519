package driven

import (
	"context"
	"time"
)

// RefreshLock provides expiring mutual exclusion across refresh runs.
// The lock is advisory: when the backend is unavailable the orchestrator
// proceeds without it rather than refusing to refresh.
type RefreshLock interface {
	// Acquire attempts to take a named lock with the given TTL. It fails
	// (false, nil) when a non-expired lock is already held; an expired
	// lock is treated as abandoned and taken over.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release releases a named lock. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// IsLocked reports whether a non-expired lock is currently held.
	IsLocked(ctx context.Context, name string) (bool, error)

	// Ping checks backend health; probed once at startup to decide
	// whether locking is available at all.
	Ping(ctx context.Context) error
}
