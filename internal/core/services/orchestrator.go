package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driving"
	"github.com/medsync-labs/medsync-core/internal/fetchers"
	"github.com/medsync-labs/medsync-core/internal/metrics"
)

// Verify interface compliance
var _ driving.RefreshService = (*Orchestrator)(nil)

const (
	refreshLockName = "refresh"
	// defaultLockTTL caps how long an abandoned lock can block refreshes
	// after a crash mid-run.
	defaultLockTTL = 30 * time.Minute
)

// Orchestrator runs complete refresh cycles: acquire the advisory lock,
// fan out one goroutine per data domain across all enabled tenants, prune
// aged rows, validate the result and finalize status. A single run
// executes at a time per deployment.
type Orchestrator struct {
	fetchers    []fetchers.Fetcher
	credentials driven.CredentialStore
	lock        driven.RefreshLock
	status      *StatusTracker
	sanity      *SanityChecker
	cleaner     *RetentionCleaner
	metrics     *metrics.Collector
	logger      *slog.Logger
	now         func() time.Time

	fetchStartYear int
	retentionDays  int
	lockTTL        time.Duration

	mu      sync.Mutex
	running bool
}

// OrchestratorConfig holds dependencies for Orchestrator. Lock may be nil
// when no lock backend is available; the orchestrator then relies on its
// in-process guard alone.
type OrchestratorConfig struct {
	Fetchers       []fetchers.Fetcher
	Credentials    driven.CredentialStore
	Lock           driven.RefreshLock
	Status         *StatusTracker
	Sanity         *SanityChecker
	Cleaner        *RetentionCleaner
	Metrics        *metrics.Collector
	Logger         *slog.Logger
	Now            func() time.Time
	FetchStartYear int
	RetentionDays  int
	LockTTL        time.Duration
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &Orchestrator{
		fetchers:       cfg.Fetchers,
		credentials:    cfg.Credentials,
		lock:           cfg.Lock,
		status:         cfg.Status,
		sanity:         cfg.Sanity,
		cleaner:        cfg.Cleaner,
		metrics:        cfg.Metrics,
		logger:         logger,
		now:            now,
		fetchStartYear: cfg.FetchStartYear,
		retentionDays:  cfg.RetentionDays,
		lockTTL:        lockTTL,
	}
}

// Trigger starts a refresh of the selected domains in the background.
func (o *Orchestrator) Trigger(ctx context.Context, domains []domain.DataDomain) error {
	if len(domains) == 0 {
		domains = domain.AllDomains
	}
	for _, d := range domains {
		if !domain.ValidDomain(d) {
			return fmt.Errorf("%w: unknown domain %q", domain.ErrBadRequest, d)
		}
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return domain.ErrRefreshInProgress
	}
	o.running = true
	o.mu.Unlock()

	if o.lock != nil {
		acquired, err := o.lock.Acquire(ctx, refreshLockName, o.lockTTL)
		if err != nil {
			// Lock backend trouble degrades to the in-process guard
			// rather than blocking refreshes entirely.
			o.logger.Warn("refresh lock unavailable, proceeding without it", "error", err)
		} else if !acquired {
			o.mu.Lock()
			o.running = false
			o.mu.Unlock()
			return domain.ErrRefreshInProgress
		}
	}

	// The run outlives the triggering request.
	go o.run(context.Background(), domains)
	return nil
}

// Status returns the current snapshot and derived data age.
func (o *Orchestrator) Status(_ context.Context) (*domain.RefreshStatusSnapshot, domain.DataAge) {
	snap := o.status.Snapshot()
	return &snap, o.status.DataAge()
}

// Cleanup prunes aged rows outside a refresh run.
func (o *Orchestrator) Cleanup(ctx context.Context, retentionDays int) (map[string]int64, error) {
	if retentionDays <= 0 {
		retentionDays = o.retentionDays
	}
	return o.cleaner.Run(ctx, retentionDays)
}

func (o *Orchestrator) run(ctx context.Context, domains []domain.DataDomain) {
	defer func() {
		if o.lock != nil {
			if err := o.lock.Release(ctx, refreshLockName); err != nil {
				o.logger.Warn("failed to release refresh lock", "error", err)
			}
		}
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	started := o.status.Start(ctx, "Refreshing data")
	o.metrics.RunStarted()
	o.logger.Info("refresh started", "domains", domains)

	tenants, err := o.credentials.ListEnabled(ctx)
	if err != nil || len(tenants) == 0 {
		if err != nil {
			o.logger.Error("could not list enabled tenants", "error", err)
		} else {
			o.logger.Warn("no enabled tenants, nothing to refresh")
		}
		o.status.Complete(ctx, domain.RunFailed, nil, nil)
		o.metrics.RunFinished(o.now().Sub(started))
		return
	}

	window := domain.Window{
		Start: time.Date(o.fetchStartYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   o.now(),
	}

	results, fetchFailed := o.fetchAll(ctx, domains, tenants, window)

	rowsDeleted, err := o.cleaner.Run(ctx, o.retentionDays)
	if err != nil {
		o.logger.Warn("retention cleanup had errors", "error", err)
	}

	o.status.UpdateProgress(ctx, 0.95, "Validating refreshed data")
	report := o.sanity.Validate(ctx, branchesForTenants(tenants), started)

	outcome := report.Outcome
	if fetchFailed && outcome == domain.RunSuccess {
		outcome = domain.RunPartial
	}

	o.status.Complete(ctx, outcome, report.Branches, report.Reports)
	o.metrics.RunFinished(o.now().Sub(started))

	summary := domain.RunSummary{
		StartedAt:   started,
		CompletedAt: o.now(),
		Outcome:     outcome,
		Results:     results,
		RowsDeleted: rowsDeleted,
		Sanity:      report,
	}
	o.logger.Info("refresh finished",
		"outcome", summary.Outcome,
		"duration", summary.CompletedAt.Sub(summary.StartedAt).Round(time.Second),
		"domains", len(results))
}

// fetchAll runs one goroutine per selected domain, each iterating the
// enabled tenants. A panicking fetcher is contained and recorded as a
// failed result.
func (o *Orchestrator) fetchAll(ctx context.Context, domains []domain.DataDomain, tenants []string, window domain.Window) (map[domain.DataDomain]*domain.FetchResult, bool) {
	selected := make([]fetchers.Fetcher, 0, len(domains))
	for _, d := range domains {
		for _, f := range o.fetchers {
			if f.Domain() == d {
				selected = append(selected, f)
				break
			}
		}
	}

	var (
		mu        sync.Mutex
		results   = make(map[domain.DataDomain]*domain.FetchResult, len(selected))
		anyFailed bool
		completed int
	)

	var wg sync.WaitGroup
	for _, f := range selected {
		wg.Add(1)
		go func(f fetchers.Fetcher) {
			defer wg.Done()

			merged := &domain.FetchResult{Domain: f.Domain(), PerBranch: map[string]domain.BranchOutcome{}}
			failed := false

			for _, tenant := range tenants {
				res, err := o.fetchTenant(ctx, f, tenant, window)
				merged.Merge(res)
				if err != nil {
					failed = true
				}
			}

			mu.Lock()
			results[f.Domain()] = merged
			anyFailed = anyFailed || failed
			completed++
			fraction := 0.9 * float64(completed) / float64(len(selected))
			mu.Unlock()

			o.status.UpdateProgress(ctx, fraction, fmt.Sprintf("Refreshed %s", f.Domain()))
		}(f)
	}
	wg.Wait()

	return results, anyFailed
}

func (o *Orchestrator) fetchTenant(ctx context.Context, f fetchers.Fetcher, tenant string, window domain.Window) (res *domain.FetchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panicked: %v", r)
			res = &domain.FetchResult{Domain: f.Domain(), Tenant: tenant, Error: err.Error()}
			o.logger.Error("fetcher panicked", "domain", f.Domain(), "tenant", tenant, "panic", r)
		}
	}()

	res, err = f.Fetch(ctx, tenant, window)
	if err != nil {
		o.logger.Error("fetch failed", "domain", f.Domain(), "tenant", tenant, "error", err)
		o.metrics.FetchError(string(f.Domain()))
	}
	return res, err
}

func branchesForTenants(tenants []string) []domain.Branch {
	var all []domain.Branch
	for _, tenant := range tenants {
		all = append(all, domain.Branches(tenant)...)
	}
	return all
}
