package driven

import (
	"context"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

// StockStore holds the current stock position. There is no history: a
// write replaces the branch's whole position, including rows for items
// that no longer appear in the batch.
type StockStore interface {
	// ReplaceStock writes a batch of stock rows and removes any prior
	// rows of the affected branches that the batch did not re-deliver.
	// All rows of one batch carry the same SourceUpdated timestamp.
	ReplaceStock(ctx context.Context, rows []domain.StockRow) (int64, error)
}

// OrderStore holds append-only purchase order and branch order line rows.
type OrderStore interface {
	InsertPurchaseOrders(ctx context.Context, rows []domain.PurchaseOrderRow) (int64, error)
	InsertBranchOrders(ctx context.Context, rows []domain.BranchOrderRow) (int64, error)
}

// InvoiceStore holds append-only supplier invoice and HQ invoice line rows.
type InvoiceStore interface {
	InsertSupplierInvoices(ctx context.Context, rows []domain.SupplierInvoiceRow) (int64, error)
	InsertHQInvoices(ctx context.Context, rows []domain.HQInvoiceRow) (int64, error)
}

// GoodsReceivedStore holds append-only goods received note line rows.
type GoodsReceivedStore interface {
	InsertGoodsReceived(ctx context.Context, rows []domain.GoodsReceivedRow) (int64, error)
}

// RetentionStore deletes aged rows from a domain table. Implementations
// must reject table/column names outside the known schema.
type RetentionStore interface {
	DeleteOlderThan(ctx context.Context, table, dateColumn string, cutoff time.Time) (int64, error)
}

// SanityProbe exposes the read queries the sanity checker needs.
type SanityProbe interface {
	// StockCount counts current stock rows for a branch.
	StockCount(ctx context.Context, tenant, branch string) (int, error)

	// StaleStockCount counts stock rows whose source_updated predates the
	// given run start. Anything non-zero means a replace did not complete.
	StaleStockCount(ctx context.Context, tenant, branch string, runStartedAt time.Time) (int, error)

	// RecentDocumentCount counts document rows for a branch whose
	// document_date is one of the given YYYY-MM-DD dates.
	RecentDocumentCount(ctx context.Context, tenant, branch string, d domain.DataDomain, dates []string) (int, error)
}
