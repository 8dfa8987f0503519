package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RetentionStore = (*RetentionStore)(nil)

// deletableTables whitelists the table/column pairs retention may touch.
// Identifiers are interpolated into SQL, so nothing outside this map is
// ever accepted.
var deletableTables = map[string]string{
	"purchase_orders":   "document_date",
	"branch_orders":     "document_date",
	"supplier_invoices": "document_date",
	"hq_invoices":       "document_date",
}

// RetentionStore implements driven.RetentionStore using PostgreSQL.
type RetentionStore struct {
	db *DB
}

// NewRetentionStore creates a new RetentionStore
func NewRetentionStore(db *DB) *RetentionStore {
	return &RetentionStore{db: db}
}

// DeleteOlderThan removes rows whose date column predates the cutoff and
// returns the number of rows deleted.
func (s *RetentionStore) DeleteOlderThan(ctx context.Context, table, dateColumn string, cutoff time.Time) (int64, error) {
	knownColumn, ok := deletableTables[table]
	if !ok || knownColumn != dateColumn {
		return 0, fmt.Errorf("refusing to delete from %s.%s: not a retention table", table, dateColumn)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`, table, dateColumn)
	res, err := s.db.ExecContext(ctx, query, cutoff.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("delete aged rows from %s: %w", table, err)
	}
	return res.RowsAffected()
}
