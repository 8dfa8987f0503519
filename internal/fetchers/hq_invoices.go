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
var _ Fetcher = (*HQInvoiceFetcher)(nil)

// HQInvoiceFetcher ingests the two document streams headquarters issues
// to the branches it serves: sales invoices and branch transfers. Both
// are listed from the HQ branch itself and attributed to the receiving
// branch by its account name.
type HQInvoiceFetcher struct {
	sessions driven.SessionSource
	api      driven.UpstreamAPI
	ledger   driven.DocumentLedger
	store    driven.InvoiceStore
	logger   *slog.Logger
	pipeline documentPipeline
}

// HQInvoiceFetcherConfig holds dependencies for HQInvoiceFetcher.
type HQInvoiceFetcherConfig struct {
	Sessions driven.SessionSource
	API      driven.UpstreamAPI
	Ledger   driven.DocumentLedger
	Store    driven.InvoiceStore
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// NewHQInvoiceFetcher creates a new HQ invoice fetcher.
func NewHQInvoiceFetcher(cfg HQInvoiceFetcherConfig) *HQInvoiceFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HQInvoiceFetcher{
		sessions: cfg.Sessions,
		api:      cfg.API,
		ledger:   cfg.Ledger,
		store:    cfg.Store,
		logger:   logger,
		pipeline: documentPipeline{
			domain:  domain.DomainHQInvoices,
			ledger:  cfg.Ledger,
			metrics: cfg.Metrics,
			logger:  logger,
			workers: detailWorkers,
		},
	}
}

func (f *HQInvoiceFetcher) Domain() domain.DataDomain { return domain.DomainHQInvoices }

func (f *HQInvoiceFetcher) Fetch(ctx context.Context, tenant string, window domain.Window) (*domain.FetchResult, error) {
	result := &domain.FetchResult{
		Domain:    domain.DomainHQInvoices,
		Tenant:    tenant,
		PerBranch: map[string]domain.BranchOutcome{},
	}

	if !hasHQBranch(tenant) {
		return result, nil
	}

	session, err := f.sessions.Session(ctx, tenant)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	existing, err := f.ledger.ExistingKeys(ctx, tenant, domain.DomainHQInvoices)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("load processed keys: %w", err)
	}

	f.fetchStream(ctx, session, result, existing, domain.HQRecordInvoice, window)
	f.fetchStream(ctx, session, result, existing, domain.HQRecordTransfer, window)

	f.logger.Info("hq invoices refresh done",
		"tenant", tenant, "documents", result.Documents, "rows", result.RowsWritten)
	return result, nil
}

func (f *HQInvoiceFetcher) fetchStream(ctx context.Context, session *driven.Session, result *domain.FetchResult, existing map[string]struct{}, recordType domain.HQRecordType, window domain.Window) {
	streamName := string(recordType) + "s"

	var headers []driven.DocumentHeader
	var err error
	if recordType == domain.HQRecordInvoice {
		headers, err = f.api.HQSalesInvoices(ctx, session.Credential, session.Token, window)
	} else {
		headers, err = f.api.HQBranchTransfers(ctx, session.Credential, session.Token, window)
	}
	if err != nil {
		f.logger.Warn("hq document listing failed", "stream", streamName, "error", err)
		result.PerBranch["HQ "+streamName] = domain.BranchOutcome{Status: domain.BranchFailed, Reason: err.Error()}
		f.pipeline.metrics.FetchError(string(domain.DomainHQInvoices))
		if result.Error != "" {
			result.Error += "; "
		}
		result.Error += fmt.Sprintf("%s listing: %v", streamName, err)
		return
	}

	// Only documents addressed to a served branch account are ingested;
	// HQ invoices its own walk-in customers through the same endpoint.
	served := headers[:0:0]
	for _, h := range headers {
		if domain.HQServedBranch(h.Account) {
			served = append(served, h)
		}
	}

	written, processed, failed := f.pipeline.process(ctx, session.Credential.Tenant, served, existing,
		func(ctx context.Context, h driven.DocumentHeader) (int64, error) {
			return f.handleDocument(ctx, session, recordType, h)
		})

	result.RowsWritten += int(written)
	result.Documents += processed
	result.PerBranch["HQ "+streamName] = branchOutcomeFor(len(served), processed, failed)
}

func (f *HQInvoiceFetcher) handleDocument(ctx context.Context, session *driven.Session, recordType domain.HQRecordType, h driven.DocumentHeader) (int64, error) {
	// Both detail endpoints key on the upstream document ID, with the
	// numeric tail of the printed number as a fallback.
	ref := h.OrderRef
	if ref == "" {
		ref = docNumberTail(h.Number)
	}

	var lines []driven.LineItem
	var err error
	if recordType == domain.HQRecordInvoice {
		lines, err = f.api.HQSalesInvoiceDetail(ctx, session.Credential, session.Token, ref)
	} else {
		lines, err = f.api.HQBranchTransferDetail(ctx, session.Credential, session.Token, ref)
	}
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, errNoDetailRows
	}

	rows := make([]domain.HQInvoiceRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, domain.HQInvoiceRow{
			Tenant:         session.Credential.Tenant,
			Branch:         h.Account,
			RecordType:     recordType,
			DocumentNumber: h.Number,
			DocumentDate:   h.Date,
			ItemCode:       line.ItemCode,
			ItemName:       line.ItemName,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			TotalAmount:    line.Total,
		})
	}
	return f.store.InsertHQInvoices(ctx, rows)
}

func hasHQBranch(tenant string) bool {
	for _, b := range domain.Branches(tenant) {
		if b.Num == domain.HQBranchNum {
			return true
		}
	}
	return false
}
