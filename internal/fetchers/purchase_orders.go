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
var _ Fetcher = (*PurchaseOrderFetcher)(nil)

// PurchaseOrderFetcher ingests purchase order documents for the branches
// that procure from external suppliers.
type PurchaseOrderFetcher struct {
	sessions driven.SessionSource
	api      driven.UpstreamAPI
	ledger   driven.DocumentLedger
	store    driven.OrderStore
	logger   *slog.Logger
	pipeline documentPipeline
}

// PurchaseOrderFetcherConfig holds dependencies for PurchaseOrderFetcher.
type PurchaseOrderFetcherConfig struct {
	Sessions driven.SessionSource
	API      driven.UpstreamAPI
	Ledger   driven.DocumentLedger
	Store    driven.OrderStore
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// NewPurchaseOrderFetcher creates a new purchase order fetcher.
func NewPurchaseOrderFetcher(cfg PurchaseOrderFetcherConfig) *PurchaseOrderFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PurchaseOrderFetcher{
		sessions: cfg.Sessions,
		api:      cfg.API,
		ledger:   cfg.Ledger,
		store:    cfg.Store,
		logger:   logger,
		pipeline: documentPipeline{
			domain:  domain.DomainPurchaseOrders,
			ledger:  cfg.Ledger,
			metrics: cfg.Metrics,
			logger:  logger,
			workers: detailWorkers,
		},
	}
}

func (f *PurchaseOrderFetcher) Domain() domain.DataDomain { return domain.DomainPurchaseOrders }

func (f *PurchaseOrderFetcher) Fetch(ctx context.Context, tenant string, window domain.Window) (*domain.FetchResult, error) {
	result := &domain.FetchResult{
		Domain:    domain.DomainPurchaseOrders,
		Tenant:    tenant,
		PerBranch: map[string]domain.BranchOutcome{},
	}

	session, err := f.sessions.Session(ctx, tenant)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	existing, err := f.ledger.ExistingKeys(ctx, tenant, domain.DomainPurchaseOrders)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("load processed keys: %w", err)
	}

	for _, branch := range domain.BranchesForDomain(tenant, domain.DomainPurchaseOrders) {
		headers, err := f.api.PurchaseOrders(ctx, session.Credential, session.Token, branch.Num, window)
		if err != nil {
			f.logger.Warn("purchase order listing failed", "branch", branch.Name, "error", err)
			result.PerBranch[branch.Name] = domain.BranchOutcome{Status: domain.BranchFailed, Reason: err.Error()}
			f.pipeline.metrics.FetchError(string(domain.DomainPurchaseOrders))
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

	f.logger.Info("purchase orders refresh done",
		"tenant", tenant, "documents", result.Documents, "rows", result.RowsWritten)
	return result, nil
}

func (f *PurchaseOrderFetcher) handleDocument(ctx context.Context, session *driven.Session, branch domain.Branch, h driven.DocumentHeader) (int64, error) {
	lines, err := f.api.PurchaseOrderDetail(ctx, session.Credential, session.Token, branch.Num, docNumberTail(h.Number))
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, errNoDetailRows
	}

	rows := make([]domain.PurchaseOrderRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, domain.PurchaseOrderRow{
			Tenant:         branch.Tenant,
			Branch:         branch.Name,
			DocumentNumber: h.Number,
			DocumentDate:   h.Date,
			ItemCode:       line.ItemCode,
			ItemName:       line.ItemName,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			TotalPrice:     line.Total,
			SupplierName:   line.SupplierName,
			Reference:      line.Reference,
			Comments:       line.Comments,
			DoneBy:         line.DoneBy,
		})
	}
	return f.store.InsertPurchaseOrders(ctx, rows)
}
