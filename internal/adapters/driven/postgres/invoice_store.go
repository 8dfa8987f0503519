package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.InvoiceStore = (*InvoiceStore)(nil)

// InvoiceStore implements driven.InvoiceStore using PostgreSQL.
type InvoiceStore struct {
	db *DB
}

// NewInvoiceStore creates a new InvoiceStore
func NewInvoiceStore(db *DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// InsertSupplierInvoices appends supplier invoice line rows
func (s *InvoiceStore) InsertSupplierInvoices(ctx context.Context, rows []domain.SupplierInvoiceRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO supplier_invoices (tenant, branch, document_number, document_date,
			item_code, item_name, units, unit_price, total_amount,
			vat_amount, net_amount, supplier_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var written int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare supplier invoice insert: %w", err)
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
				row.Units,
				row.UnitPrice,
				row.TotalAmount,
				row.VATAmount,
				row.NetAmount,
				row.SupplierName,
			); err != nil {
				return fmt.Errorf("insert supplier invoice row %s: %w", row.DocumentNumber, err)
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

// InsertHQInvoices appends HQ invoice and transfer line rows
func (s *InvoiceStore) InsertHQInvoices(ctx context.Context, rows []domain.HQInvoiceRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO hq_invoices (tenant, branch, record_type, document_number,
			document_date, item_code, item_name, quantity, unit_price, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var written int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare hq invoice insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.Tenant,
				row.Branch,
				string(row.RecordType),
				row.DocumentNumber,
				row.DocumentDate,
				row.ItemCode,
				row.ItemName,
				row.Quantity,
				row.UnitPrice,
				row.TotalAmount,
			); err != nil {
				return fmt.Errorf("insert hq invoice row %s: %w", row.DocumentNumber, err)
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
