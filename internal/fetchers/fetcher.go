package fetchers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
	"github.com/medsync-labs/medsync-core/internal/metrics"
)

// Fetcher pulls one data domain from the upstream for one tenant.
type Fetcher interface {
	Domain() domain.DataDomain

	// Fetch ingests the domain for every branch of the tenant within the
	// window. Branch-level failures are recorded in the result rather
	// than aborting the whole fetch; the returned error is reserved for
	// tenant-level failures (no session, ledger unavailable).
	Fetch(ctx context.Context, tenant string, window domain.Window) (*domain.FetchResult, error)
}

const (
	// stockWorkers bounds concurrent branch stock downloads.
	stockWorkers = 15
	// detailWorkers bounds concurrent document detail downloads.
	detailWorkers = 20
)

// errNoDetailRows signals that a document's detail came back empty or
// malformed. The document stays unmarked so a later run retries it once
// the upstream serves the detail.
var errNoDetailRows = errors.New("detail returned no line rows")

// docNumberTail extracts the trailing numeric part of a printed document
// number ("PO-BR013-1042" yields "1042"), which is what the upstream
// detail endpoints expect.
func docNumberTail(number string) string {
	if i := strings.LastIndex(number, "-"); i >= 0 {
		return number[i+1:]
	}
	return number
}

// documentPipeline is the ledger-filtered detail stage shared by the
// document fetchers: skip already-processed candidates, fetch the rest
// concurrently and mark a key only after its rows were written.
type documentPipeline struct {
	domain  domain.DataDomain
	ledger  driven.DocumentLedger
	metrics *metrics.Collector
	logger  *slog.Logger
	workers int
}

// process handles one branch's candidate list. handle fetches one
// document's detail and writes its rows, returning the row count.
func (p *documentPipeline) process(
	ctx context.Context,
	tenant string,
	headers []driven.DocumentHeader,
	existing map[string]struct{},
	handle func(ctx context.Context, h driven.DocumentHeader) (int64, error),
) (written int64, processed int, failed int) {
	pending := make([]driven.DocumentHeader, 0, len(headers))
	skipped := 0
	for _, h := range headers {
		key := domain.DocumentKey{Tenant: tenant, Domain: p.domain, Number: h.Number, Date: h.Date}
		if _, ok := existing[key.MemberKey()]; ok {
			skipped++
			continue
		}
		pending = append(pending, h)
	}
	p.metrics.DocumentsSkipped(string(p.domain), skipped)

	if len(pending) == 0 {
		return 0, 0, 0
	}

	var (
		rowTotal  atomic.Int64
		doneCount atomic.Int64
		failCount atomic.Int64
	)

	jobs := make(chan driven.DocumentHeader)
	var wg sync.WaitGroup

	workers := p.workers
	if workers > len(pending) {
		workers = len(pending)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for h := range jobs {
				rows, err := handle(ctx, h)
				if errors.Is(err, errNoDetailRows) {
					// Not a failure and not done either: leaving the key
					// unmarked keeps the document eligible for retry.
					p.logger.Warn("document detail empty, will retry next run",
						"domain", p.domain, "tenant", tenant, "document", h.Number)
					continue
				}
				if err != nil {
					failCount.Add(1)
					p.metrics.DocumentFailed(string(p.domain))
					p.logger.Warn("document fetch failed",
						"domain", p.domain, "tenant", tenant, "document", h.Number, "error", err)
					continue
				}

				key := domain.DocumentKey{Tenant: tenant, Domain: p.domain, Number: h.Number, Date: h.Date}
				if err := p.ledger.MarkProcessed(ctx, key); err != nil {
					// The write succeeded; an unmarked key only costs a
					// redundant detail fetch next run.
					p.logger.Warn("failed to mark document processed",
						"domain", p.domain, "tenant", tenant, "document", h.Number, "error", err)
				}

				rowTotal.Add(rows)
				doneCount.Add(1)
				p.metrics.DocumentFetched(string(p.domain))
				p.metrics.RowsWritten(string(p.domain), rows)
			}
		}()
	}

	for _, h := range pending {
		select {
		case jobs <- h:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return rowTotal.Load(), int(doneCount.Load()), int(failCount.Load()) + 1
		}
	}
	close(jobs)
	wg.Wait()

	return rowTotal.Load(), int(doneCount.Load()), int(failCount.Load())
}

// branchOutcomeFor summarizes one branch after its pipeline pass.
func branchOutcomeFor(candidates, processed, failed int) domain.BranchOutcome {
	switch {
	case failed > 0:
		return domain.BranchOutcome{Status: domain.BranchFailed, Reason: "some documents could not be fetched"}
	case candidates == 0:
		return domain.BranchOutcome{Status: domain.BranchNoData}
	default:
		return domain.BranchOutcome{Status: domain.BranchSuccess}
	}
}
