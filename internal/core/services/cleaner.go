package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// retentionTables maps each append-only document table to its date
// column. Stock is excluded: it is a replace-in-place snapshot, not a
// growing history.
var retentionTables = map[string]string{
	"purchase_orders":   "document_date",
	"branch_orders":     "document_date",
	"supplier_invoices": "document_date",
	"hq_invoices":       "document_date",
}

// RetentionCleaner prunes document rows older than the retention window.
type RetentionCleaner struct {
	store  driven.RetentionStore
	logger *slog.Logger
	now    func() time.Time
}

// RetentionCleanerConfig holds dependencies for RetentionCleaner.
type RetentionCleanerConfig struct {
	Store  driven.RetentionStore
	Logger *slog.Logger
	Now    func() time.Time
}

// NewRetentionCleaner creates a new retention cleaner.
func NewRetentionCleaner(cfg RetentionCleanerConfig) *RetentionCleaner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RetentionCleaner{store: cfg.Store, logger: logger, now: now}
}

// Run deletes rows older than retentionDays from every document table and
// returns per-table delete counts. A failure on one table is logged and
// does not stop the others; the first error is returned after all tables
// have been attempted.
func (c *RetentionCleaner) Run(ctx context.Context, retentionDays int) (map[string]int64, error) {
	cutoff := c.now().AddDate(0, 0, -retentionDays)
	deleted := make(map[string]int64, len(retentionTables))

	var firstErr error
	for table, dateColumn := range retentionTables {
		n, err := c.store.DeleteOlderThan(ctx, table, dateColumn, cutoff)
		if err != nil {
			c.logger.Error("retention cleanup failed", "table", table, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted[table] = n
		if n > 0 {
			c.logger.Info("pruned aged rows", "table", table, "rows", n, "cutoff", cutoff.Format("2006-01-02"))
		}
	}

	return deleted, firstErr
}
