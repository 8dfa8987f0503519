package fetchers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
	"github.com/medsync-labs/medsync-core/internal/metrics"
)

// Verify interface compliance
var _ Fetcher = (*SupplierInvoiceFetcher)(nil)

// SupplierInvoiceFetcher ingests invoices received from external
// suppliers. Only the procurement branches have any.
type SupplierInvoiceFetcher struct {
	sessions driven.SessionSource
	api      driven.UpstreamAPI
	ledger   driven.DocumentLedger
	store    driven.InvoiceStore
	logger   *slog.Logger
	pipeline documentPipeline
}

// SupplierInvoiceFetcherConfig holds dependencies for SupplierInvoiceFetcher.
type SupplierInvoiceFetcherConfig struct {
	Sessions driven.SessionSource
	API      driven.UpstreamAPI
	Ledger   driven.DocumentLedger
	Store    driven.InvoiceStore
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// NewSupplierInvoiceFetcher creates a new supplier invoice fetcher.
func NewSupplierInvoiceFetcher(cfg SupplierInvoiceFetcherConfig) *SupplierInvoiceFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SupplierInvoiceFetcher{
		sessions: cfg.Sessions,
		api:      cfg.API,
		ledger:   cfg.Ledger,
		store:    cfg.Store,
		logger:   logger,
		pipeline: documentPipeline{
			domain:  domain.DomainSupplierInvoices,
			ledger:  cfg.Ledger,
			metrics: cfg.Metrics,
			logger:  logger,
			workers: detailWorkers,
		},
	}
}

func (f *SupplierInvoiceFetcher) Domain() domain.DataDomain { return domain.DomainSupplierInvoices }

func (f *SupplierInvoiceFetcher) Fetch(ctx context.Context, tenant string, window domain.Window) (*domain.FetchResult, error) {
	result := &domain.FetchResult{
		Domain:    domain.DomainSupplierInvoices,
		Tenant:    tenant,
		PerBranch: map[string]domain.BranchOutcome{},
	}

	session, err := f.sessions.Session(ctx, tenant)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	existing, err := f.ledger.ExistingKeys(ctx, tenant, domain.DomainSupplierInvoices)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("load processed keys: %w", err)
	}

	for _, branch := range domain.BranchesForDomain(tenant, domain.DomainSupplierInvoices) {
		headers, err := f.api.SupplierInvoices(ctx, session.Credential, session.Token, branch.Num, window)
		if err != nil {
			f.logger.Warn("supplier invoice listing failed", "branch", branch.Name, "error", err)
			result.PerBranch[branch.Name] = domain.BranchOutcome{Status: domain.BranchFailed, Reason: err.Error()}
			f.pipeline.metrics.FetchError(string(domain.DomainSupplierInvoices))
			continue
		}

		written, processed, failed := f.pipeline.process(ctx, tenant, headers, existing,
			func(ctx context.Context, h driven.DocumentHeader) (int64, error) {
				return f.handleDocument(ctx, session, branch, h)
			})

		result.RowsWritten += int(written)
		result.Documents += processed
		result.PerBranch[branch.Name] = branchOutcomeFor(len(headers), processed, failed)
	}

	f.logger.Info("supplier invoices refresh done",
		"tenant", tenant, "documents", result.Documents, "rows", result.RowsWritten)
	return result, nil
}

func (f *SupplierInvoiceFetcher) handleDocument(ctx context.Context, session *driven.Session, branch domain.Branch, h driven.DocumentHeader) (int64, error) {
	lines, err := f.api.SupplierInvoiceDetail(ctx, session.Credential, session.Token, branch.Num, docNumberTail(h.Number))
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, errNoDetailRows
	}

	rows := make([]domain.SupplierInvoiceRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, domain.SupplierInvoiceRow{
			Tenant:         branch.Tenant,
			Branch:         branch.Name,
			DocumentNumber: h.Number,
			DocumentDate:   h.Date,
			ItemCode:       line.ItemCode,
			ItemName:       line.ItemName,
			Units:          line.Quantity,
			UnitPrice:      line.UnitPrice,
			TotalAmount:    line.Total,
			VATAmount:      line.VAT,
			NetAmount:      line.Net,
			SupplierName:   line.SupplierName,
		})
	}
	return f.store.InsertSupplierInvoices(ctx, rows)
}
