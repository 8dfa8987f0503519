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
var _ Fetcher = (*GoodsReceivedFetcher)(nil)

// GoodsReceivedFetcher ingests goods received notes for the branches
// that book deliveries through the GRN workflow. The note header carries
// the supplier and comments; line rows only carry item and quantity.
type GoodsReceivedFetcher struct {
	sessions driven.SessionSource
	api      driven.UpstreamAPI
	ledger   driven.DocumentLedger
	store    driven.GoodsReceivedStore
	logger   *slog.Logger
	pipeline documentPipeline
}

// GoodsReceivedFetcherConfig holds dependencies for GoodsReceivedFetcher.
type GoodsReceivedFetcherConfig struct {
	Sessions driven.SessionSource
	API      driven.UpstreamAPI
	Ledger   driven.DocumentLedger
	Store    driven.GoodsReceivedStore
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// NewGoodsReceivedFetcher creates a new goods received note fetcher.
func NewGoodsReceivedFetcher(cfg GoodsReceivedFetcherConfig) *GoodsReceivedFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GoodsReceivedFetcher{
		sessions: cfg.Sessions,
		api:      cfg.API,
		ledger:   cfg.Ledger,
		store:    cfg.Store,
		logger:   logger,
		pipeline: documentPipeline{
			domain:  domain.DomainGoodsReceived,
			ledger:  cfg.Ledger,
			metrics: cfg.Metrics,
			logger:  logger,
			workers: detailWorkers,
		},
	}
}

func (f *GoodsReceivedFetcher) Domain() domain.DataDomain { return domain.DomainGoodsReceived }

func (f *GoodsReceivedFetcher) Fetch(ctx context.Context, tenant string, window domain.Window) (*domain.FetchResult, error) {
	result := &domain.FetchResult{
		Domain:    domain.DomainGoodsReceived,
		Tenant:    tenant,
		PerBranch: map[string]domain.BranchOutcome{},
	}

	branches := domain.BranchesForDomain(tenant, domain.DomainGoodsReceived)
	if len(branches) == 0 {
		return result, nil
	}

	session, err := f.sessions.Session(ctx, tenant)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	existing, err := f.ledger.ExistingKeys(ctx, tenant, domain.DomainGoodsReceived)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("load processed keys: %w", err)
	}

	for _, branch := range branches {
		headers, err := f.api.GoodsReceivedNotes(ctx, session.Credential, session.Token, branch.Num, window)
		if err != nil {
			f.logger.Warn("goods received listing failed", "branch", branch.Name, "error", err)
			result.PerBranch[branch.Name] = domain.BranchOutcome{Status: domain.BranchFailed, Reason: err.Error()}
			f.pipeline.metrics.FetchError(string(domain.DomainGoodsReceived))
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

	f.logger.Info("goods received refresh done",
		"tenant", tenant, "documents", result.Documents, "rows", result.RowsWritten)
	return result, nil
}

func (f *GoodsReceivedFetcher) handleDocument(ctx context.Context, session *driven.Session, branch domain.Branch, h driven.DocumentHeader) (int64, error) {
	// The detail endpoint keys on the full printed note number.
	lines, err := f.api.GoodsReceivedNoteDetail(ctx, session.Credential, session.Token, branch.Num, h.Number)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, errNoDetailRows
	}

	rows := make([]domain.GoodsReceivedRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, domain.GoodsReceivedRow{
			Tenant:         branch.Tenant,
			Branch:         branch.Name,
			DocumentNumber: h.Number,
			DocumentDate:   h.Date,
			ItemCode:       line.ItemCode,
			ItemName:       line.ItemName,
			Quantity:       line.Quantity,
			Destination:    h.Supplier,
			Comments:       h.Comments,
		})
	}
	return f.store.InsertGoodsReceived(ctx, rows)
}
