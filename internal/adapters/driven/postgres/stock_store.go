package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StockStore = (*StockStore)(nil)

// StockStore implements driven.StockStore using PostgreSQL.
type StockStore struct {
	db *DB
}

// NewStockStore creates a new StockStore
func NewStockStore(db *DB) *StockStore {
	return &StockStore{db: db}
}

// ReplaceStock replaces the stock position of the branches present in
// the batch. Everything happens in one transaction: the batch is
// upserted first and leftover rows are deleted last, so a branch is
// never observed empty mid-refresh and an item that dropped out of the
// upstream position does not linger with a stale source_updated.
func (s *StockStore) ReplaceStock(ctx context.Context, rows []domain.StockRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	upsert := `
		INSERT INTO current_stock (tenant, branch, item_code, item_name, stock_string,
			stock_pieces, pack_size, unit_price, stock_value, source_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant, branch, item_code) DO UPDATE SET
			item_name = EXCLUDED.item_name,
			stock_string = EXCLUDED.stock_string,
			stock_pieces = EXCLUDED.stock_pieces,
			pack_size = EXCLUDED.pack_size,
			unit_price = EXCLUDED.unit_price,
			stock_value = EXCLUDED.stock_value,
			source_updated = EXCLUDED.source_updated
	`
	sweep := `
		DELETE FROM current_stock
		WHERE tenant = $1 AND branch = $2 AND source_updated < $3
	`

	type branchBatch struct {
		tenant  string
		branch  string
		batched time.Time
	}
	batches := make(map[string]branchBatch)

	var written int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsert)
		if err != nil {
			return fmt.Errorf("prepare stock upsert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.Tenant,
				row.Branch,
				row.ItemCode,
				row.ItemName,
				row.StockString,
				row.StockPieces,
				row.PackSize,
				row.UnitPrice,
				row.StockValue,
				row.SourceUpdated,
			); err != nil {
				return fmt.Errorf("upsert stock row %s/%s: %w", row.Branch, row.ItemCode, err)
			}
			written++

			key := row.Tenant + "|" + row.Branch
			if b, ok := batches[key]; !ok || row.SourceUpdated.After(b.batched) {
				batches[key] = branchBatch{tenant: row.Tenant, branch: row.Branch, batched: row.SourceUpdated}
			}
		}

		for _, b := range batches {
			if _, err := tx.ExecContext(ctx, sweep, b.tenant, b.branch, b.batched); err != nil {
				return fmt.Errorf("sweep stale stock rows %s: %w", b.branch, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
