package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SanityProbe = (*SanityStore)(nil)

// documentTables maps a data domain to its table and branch column. The
// branch orders table attributes rows to the originating branch.
var documentTables = map[domain.DataDomain]struct {
	table        string
	branchColumn string
}{
	domain.DomainPurchaseOrders:   {"purchase_orders", "branch"},
	domain.DomainBranchOrders:     {"branch_orders", "source_branch"},
	domain.DomainSupplierInvoices: {"supplier_invoices", "branch"},
	domain.DomainHQInvoices:       {"hq_invoices", "branch"},
}

// SanityStore implements driven.SanityProbe using PostgreSQL.
type SanityStore struct {
	db *DB
}

// NewSanityStore creates a new SanityStore
func NewSanityStore(db *DB) *SanityStore {
	return &SanityStore{db: db}
}

// StockCount counts current stock rows for a branch
func (s *SanityStore) StockCount(ctx context.Context, tenant, branch string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM current_stock WHERE tenant = $1 AND branch = $2`,
		tenant, branch,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stock rows: %w", err)
	}
	return count, nil
}

// StaleStockCount counts stock rows whose source_updated predates the run start
func (s *SanityStore) StaleStockCount(ctx context.Context, tenant, branch string, runStartedAt time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM current_stock WHERE tenant = $1 AND branch = $2 AND source_updated < $3`,
		tenant, branch, runStartedAt,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count stale stock rows: %w", err)
	}
	return count, nil
}

// RecentDocumentCount counts document rows for a branch on the given dates
func (s *SanityStore) RecentDocumentCount(ctx context.Context, tenant, branch string, d domain.DataDomain, dates []string) (int, error) {
	spec, ok := documentTables[d]
	if !ok {
		return 0, fmt.Errorf("no document table for domain %q", d)
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE tenant = $1 AND %s = $2 AND document_date = ANY($3::date[])`,
		spec.table, spec.branchColumn,
	)

	var count int
	err := s.db.QueryRowContext(ctx, query, tenant, branch, pq.Array(dates)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent %s rows: %w", spec.table, err)
	}
	return count, nil
}
