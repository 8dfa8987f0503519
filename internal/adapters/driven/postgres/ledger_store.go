package postgres

import (
	"context"
	"fmt"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentLedger = (*LedgerStore)(nil)

// LedgerStore implements driven.DocumentLedger using PostgreSQL. The
// composite primary key makes duplicate marks no-ops.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new LedgerStore
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// IsProcessed checks whether a document key has been recorded
func (s *LedgerStore) IsProcessed(ctx context.Context, key domain.DocumentKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM processed_documents
			WHERE tenant = $1 AND data_domain = $2 AND document_number = $3 AND document_date = $4
		)
	`

	var exists bool
	err := s.db.QueryRowContext(ctx, query, key.Tenant, string(key.Domain), key.Number, key.Date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check processed document: %w", err)
	}
	return exists, nil
}

// MarkProcessed records a document key. Duplicate marks are no-ops.
func (s *LedgerStore) MarkProcessed(ctx context.Context, key domain.DocumentKey) error {
	query := `
		INSERT INTO processed_documents (tenant, data_domain, document_number, document_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query, key.Tenant, string(key.Domain), key.Number, key.Date)
	if err != nil {
		return fmt.Errorf("mark document processed: %w", err)
	}
	return nil
}

// ExistingKeys returns every recorded key for a tenant and domain as a
// membership set
func (s *LedgerStore) ExistingKeys(ctx context.Context, tenant string, d domain.DataDomain) (map[string]struct{}, error) {
	query := `
		SELECT document_number, document_date
		FROM processed_documents
		WHERE tenant = $1 AND data_domain = $2
	`

	rows, err := s.db.QueryContext(ctx, query, tenant, string(d))
	if err != nil {
		return nil, fmt.Errorf("load processed documents: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var number, date string
		if err := rows.Scan(&number, &date); err != nil {
			return nil, err
		}
		keys[domain.DocumentKey{Number: number, Date: date}.MemberKey()] = struct{}{}
	}
	return keys, rows.Err()
}
