package driven

import (
	"context"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

// RefreshStatusStore persists the single refresh status record so run
// state survives process restarts.
type RefreshStatusStore interface {
	// Load returns the stored snapshot, or a zero snapshot when none
	// exists yet.
	Load(ctx context.Context) (*domain.RefreshStatusSnapshot, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *domain.RefreshStatusSnapshot) error
}
