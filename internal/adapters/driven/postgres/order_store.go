package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OrderStore = (*OrderStore)(nil)

// OrderStore implements driven.OrderStore using PostgreSQL. Order line
// rows are append-only; the ledger keeps duplicates out upstream.
type OrderStore struct {
	db *DB
}

// NewOrderStore creates a new OrderStore
func NewOrderStore(db *DB) *OrderStore {
	return &OrderStore{db: db}
}

// InsertPurchaseOrders appends purchase order line rows
func (s *OrderStore) InsertPurchaseOrders(ctx context.Context, rows []domain.PurchaseOrderRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO purchase_orders (tenant, branch, document_number, document_date,
			item_code, item_name, quantity, unit_price, total_price,
			supplier_name, reference, comments, done_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var written int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare purchase order insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.Tenant,
				row.Branch,
				row.DocumentNumber,
				row.DocumentDate,
				row.ItemCode,
				row.ItemName,
				row.Quantity,
				row.UnitPrice,
				row.TotalPrice,
				row.SupplierName,
				row.Reference,
				row.Comments,
				row.DoneBy,
			); err != nil {
				return fmt.Errorf("insert purchase order row %s: %w", row.DocumentNumber, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// InsertBranchOrders appends branch order line rows
func (s *OrderStore) InsertBranchOrders(ctx context.Context, rows []domain.BranchOrderRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO branch_orders (tenant, source_branch, destination_branch,
			document_number, document_date, item_code, item_name, quantity,
			unit_price, total_price, reference, comments, done_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	var written int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare branch order insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.Tenant,
				row.SourceBranch,
				row.DestinationBranch,
				row.DocumentNumber,
				row.DocumentDate,
				row.ItemCode,
				row.ItemName,
				row.Quantity,
				row.UnitPrice,
				row.TotalPrice,
				row.Reference,
				row.Comments,
				row.DoneBy,
				row.Status,
			); err != nil {
				return fmt.Errorf("insert branch order row %s: %w", row.DocumentNumber, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
