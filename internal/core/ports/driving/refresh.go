package driving

import (
	"context"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

// RefreshService is the surface the HTTP layer drives.
type RefreshService interface {
	// Trigger starts a refresh of the selected domains (nil means all)
	// in the background. Returns domain.ErrRefreshInProgress when a run
	// is already executing.
	Trigger(ctx context.Context, domains []domain.DataDomain) error

	// Status returns the current snapshot plus the derived data age.
	Status(ctx context.Context) (*domain.RefreshStatusSnapshot, domain.DataAge)

	// Cleanup prunes rows older than the retention window and returns
	// per-table delete counts.
	Cleanup(ctx context.Context, retentionDays int) (map[string]int64, error)
}
