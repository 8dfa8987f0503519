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
var _ Fetcher = (*BranchOrderFetcher)(nil)

// BranchOrderFetcher ingests inter-branch transfer orders. Every branch
// can raise them, and the detail endpoint is addressed by the raw order
// reference rather than the printed document number.
type BranchOrderFetcher struct {
	sessions driven.SessionSource
	api      driven.UpstreamAPI
	ledger   driven.DocumentLedger
	store    driven.OrderStore
	logger   *slog.Logger
	pipeline documentPipeline
}

// BranchOrderFetcherConfig holds dependencies for BranchOrderFetcher.
type BranchOrderFetcherConfig struct {
	Sessions driven.SessionSource
	API      driven.UpstreamAPI
	Ledger   driven.DocumentLedger
	Store    driven.OrderStore
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// NewBranchOrderFetcher creates a new branch order fetcher.
func NewBranchOrderFetcher(cfg BranchOrderFetcherConfig) *BranchOrderFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BranchOrderFetcher{
		sessions: cfg.Sessions,
		api:      cfg.API,
		ledger:   cfg.Ledger,
		store:    cfg.Store,
		logger:   logger,
		pipeline: documentPipeline{
			domain:  domain.DomainBranchOrders,
			ledger:  cfg.Ledger,
			metrics: cfg.Metrics,
			logger:  logger,
			workers: detailWorkers,
		},
	}
}

func (f *BranchOrderFetcher) Domain() domain.DataDomain { return domain.DomainBranchOrders }

func (f *BranchOrderFetcher) Fetch(ctx context.Context, tenant string, window domain.Window) (*domain.FetchResult, error) {
	result := &domain.FetchResult{
		Domain:    domain.DomainBranchOrders,
		Tenant:    tenant,
		PerBranch: map[string]domain.BranchOutcome{},
	}

	session, err := f.sessions.Session(ctx, tenant)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	existing, err := f.ledger.ExistingKeys(ctx, tenant, domain.DomainBranchOrders)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("load processed keys: %w", err)
	}

	for _, branch := range domain.BranchesForDomain(tenant, domain.DomainBranchOrders) {
		headers, err := f.api.BranchOrders(ctx, session.Credential, session.Token, branch.Num, window)
		if err != nil {
			f.logger.Warn("branch order listing failed", "branch", branch.Name, "error", err)
			result.PerBranch[branch.Name] = domain.BranchOutcome{Status: domain.BranchFailed, Reason: err.Error()}
			f.pipeline.metrics.FetchError(string(domain.DomainBranchOrders))
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

	f.logger.Info("branch orders refresh done",
		"tenant", tenant, "documents", result.Documents, "rows", result.RowsWritten)
	return result, nil
}

func (f *BranchOrderFetcher) handleDocument(ctx context.Context, session *driven.Session, branch domain.Branch, h driven.DocumentHeader) (int64, error) {
	orderRef := h.OrderRef
	if orderRef == "" {
		orderRef = docNumberTail(h.Number)
	}

	lines, err := f.api.BranchOrderDetail(ctx, session.Credential, session.Token, branch.Num, orderRef)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, errNoDetailRows
	}

	rows := make([]domain.BranchOrderRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, domain.BranchOrderRow{
			Tenant:            branch.Tenant,
			SourceBranch:      branchLabel(line.SenderBranch, branch.Name),
			DestinationBranch: branchLabel(line.ReceiverBranch, ""),
			DocumentNumber:    h.Number,
			DocumentDate:      h.Date,
			ItemCode:          line.ItemCode,
			ItemName:          line.ItemName,
			Quantity:          line.Quantity,
			UnitPrice:         line.UnitPrice,
			TotalPrice:        line.Total,
			Reference:         line.Reference,
			Comments:          line.Comments,
			DoneBy:            line.DoneBy,
			Status:            line.Status,
		})
	}
	return f.store.InsertBranchOrders(ctx, rows)
}

// branchLabel resolves a branch code to its display name, falling back to
// the raw code and finally to the given default.
func branchLabel(code, fallback string) string {
	if code == "" {
		return fallback
	}
	if name := domain.BranchName(code); name != "" {
		return name
	}
	return code
}
