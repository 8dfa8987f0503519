package fetchers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
	"github.com/medsync-labs/medsync-core/internal/metrics"
)

// Verify interface compliance
var _ Fetcher = (*StockFetcher)(nil)

// StockFetcher replaces each branch's current stock position. Stock is a
// snapshot, not a document stream, so it bypasses the ledger entirely.
type StockFetcher struct {
	sessions driven.SessionSource
	api      driven.UpstreamAPI
	store    driven.StockStore
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time
}

// StockFetcherConfig holds dependencies for StockFetcher.
type StockFetcherConfig struct {
	Sessions driven.SessionSource
	API      driven.UpstreamAPI
	Store    driven.StockStore
	Metrics  *metrics.Collector
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewStockFetcher creates a new stock fetcher.
func NewStockFetcher(cfg StockFetcherConfig) *StockFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &StockFetcher{
		sessions: cfg.Sessions,
		api:      cfg.API,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      now,
	}
}

func (f *StockFetcher) Domain() domain.DataDomain { return domain.DomainStock }

// Fetch downloads every branch's stock position concurrently. The window
// is ignored: stock has no date dimension.
func (f *StockFetcher) Fetch(ctx context.Context, tenant string, _ domain.Window) (*domain.FetchResult, error) {
	result := &domain.FetchResult{
		Domain:    domain.DomainStock,
		Tenant:    tenant,
		PerBranch: map[string]domain.BranchOutcome{},
	}

	session, err := f.sessions.Session(ctx, tenant)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	branches := domain.BranchesForDomain(tenant, domain.DomainStock)

	jobs := make(chan domain.Branch)
	results := make(chan stockBranchResult, len(branches))
	var wg sync.WaitGroup

	workers := stockWorkers
	if workers > len(branches) {
		workers = len(branches)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for branch := range jobs {
				results <- f.fetchBranch(ctx, session, branch)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, branch := range branches {
			select {
			case jobs <- branch:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)

	for r := range results {
		result.PerBranch[r.branch.Name] = r.outcome
		result.RowsWritten += int(r.rows)
		result.Documents += r.items
		if r.outcome.Status == domain.BranchFailed {
			f.metrics.FetchError(string(domain.DomainStock))
		}
	}
	f.metrics.RowsWritten(string(domain.DomainStock), int64(result.RowsWritten))

	f.logger.Info("stock refresh done",
		"tenant", tenant, "branches", len(branches), "rows", result.RowsWritten)
	return result, ctx.Err()
}

type stockBranchResult struct {
	branch  domain.Branch
	rows    int64
	items   int
	outcome domain.BranchOutcome
}

func (f *StockFetcher) fetchBranch(ctx context.Context, session *driven.Session, branch domain.Branch) (r stockBranchResult) {
	r.branch = branch

	items, err := f.api.BranchStock(ctx, session.Credential, session.Token, branch.Num)
	if err != nil {
		f.logger.Warn("branch stock fetch failed", "branch", branch.Name, "error", err)
		r.outcome = domain.BranchOutcome{Status: domain.BranchFailed, Reason: err.Error()}
		return r
	}
	if len(items) == 0 {
		r.outcome = domain.BranchOutcome{Status: domain.BranchNoData}
		return r
	}

	fetchedAt := f.now()
	rows := make([]domain.StockRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, domain.StockRow{
			Tenant:        branch.Tenant,
			Branch:        branch.Name,
			ItemCode:      item.ItemCode,
			ItemName:      item.ItemName,
			StockString:   item.StockString,
			StockPieces:   int(item.Quantity),
			PackSize:      item.PackSize,
			UnitPrice:     item.UnitPrice,
			StockValue:    stockValue(item),
			SourceUpdated: fetchedAt,
		})
	}

	written, err := f.store.ReplaceStock(ctx, rows)
	if err != nil {
		r.outcome = domain.BranchOutcome{Status: domain.BranchFailed, Reason: fmt.Sprintf("store write: %v", err)}
		return r
	}

	r.rows = written
	r.items = len(items)
	r.outcome = domain.BranchOutcome{Status: domain.BranchSuccess}
	return r
}

// stockValue prices the position in packs when a pack size is known; the
// unit price is per pack.
func stockValue(item driven.StockItem) float64 {
	if item.PackSize > 0 {
		return item.Quantity / float64(item.PackSize) * item.UnitPrice
	}
	return item.Quantity * item.UnitPrice
}
