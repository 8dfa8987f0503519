package driven

import (
	"context"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

// DocumentLedger tracks which upstream documents have already been
// ingested. Keys are append-only: once marked, a key is never unmarked by
// this component.
type DocumentLedger interface {
	// IsProcessed checks a single key.
	IsProcessed(ctx context.Context, key domain.DocumentKey) (bool, error)

	// MarkProcessed records a key. Duplicate marks are no-ops.
	MarkProcessed(ctx context.Context, key domain.DocumentKey) error

	// ExistingKeys returns every recorded key for a tenant and domain as
	// a membership set keyed by DocumentKey.MemberKey(). Fetchers use
	// this bulk form to filter candidate lists before issuing detail
	// calls.
	ExistingKeys(ctx context.Context, tenant string, d domain.DataDomain) (map[string]struct{}, error)
}
