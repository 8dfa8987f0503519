package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.GoodsReceivedStore = (*GoodsReceivedStore)(nil)

// GoodsReceivedStore implements driven.GoodsReceivedStore using
// PostgreSQL. Note line rows are append-only; the ledger keeps
// duplicates out upstream.
type GoodsReceivedStore struct {
	db *DB
}

// NewGoodsReceivedStore creates a new GoodsReceivedStore
func NewGoodsReceivedStore(db *DB) *GoodsReceivedStore {
	return &GoodsReceivedStore{db: db}
}

// InsertGoodsReceived appends goods received note line rows
func (s *GoodsReceivedStore) InsertGoodsReceived(ctx context.Context, rows []domain.GoodsReceivedRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO goods_received_notes (tenant, branch, document_number,
			document_date, item_code, item_name, quantity, destination, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var written int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare goods received insert: %w", err)
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
				row.Destination,
				row.Comments,
			); err != nil {
				return fmt.Errorf("insert goods received row %s: %w", row.DocumentNumber, err)
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
