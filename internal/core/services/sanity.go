package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// SanityChecker validates per-branch freshness and correctness after a
// refresh run. Its verdict gates the last-successful timestamp: a branch
// that fails any applicable check keeps the run from counting as fresh.
type SanityChecker struct {
	probe  driven.SanityProbe
	logger *slog.Logger
	now    func() time.Time
}

// SanityCheckerConfig holds dependencies for SanityChecker.
type SanityCheckerConfig struct {
	Probe  driven.SanityProbe
	Logger *slog.Logger
	Now    func() time.Time
}

// NewSanityChecker creates a new sanity checker.
func NewSanityChecker(cfg SanityCheckerConfig) *SanityChecker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SanityChecker{probe: cfg.Probe, logger: logger, now: now}
}

// Validate checks every branch and aggregates report-level outcomes.
//
// Per branch:
//   - stock: rows exist, and none predate the run start (stale leftovers
//     mean a replace did not complete);
//   - orders: at least one purchase order OR branch order dated today or
//     yesterday (the two are alternative order paths);
//   - supplier invoices: same recency rule, only for procurement branches.
//
// The today-or-yesterday window absorbs weekend and holiday gaps without
// calendar logic.
func (s *SanityChecker) Validate(ctx context.Context, branches []domain.Branch, runStartedAt time.Time) *domain.SanityReport {
	report := &domain.SanityReport{
		Branches: make(map[string]domain.BranchOutcome, len(branches)),
		Reports: map[string]domain.ReportStatus{
			"stock":             domain.ReportSuccess,
			"orders":            domain.ReportSuccess,
			"supplier_invoices": domain.ReportSuccess,
		},
	}

	today := s.now().Format("2006-01-02")
	yesterday := s.now().AddDate(0, 0, -1).Format("2006-01-02")
	recentDates := []string{today, yesterday}

	var stockFailures, orderFailures, invoiceFailures, invoiceChecked int

	for _, branch := range branches {
		outcome := domain.BranchOutcome{Status: domain.BranchSuccess}

		if reason := s.checkStock(ctx, branch, runStartedAt); reason != "" {
			fail(&outcome, "Stock: "+reason)
			stockFailures++
		}

		if reason := s.checkOrders(ctx, branch, recentDates); reason != "" {
			fail(&outcome, "Orders: "+reason)
			orderFailures++
		}

		if branchHasSupplierInvoices(branch) {
			invoiceChecked++
			if reason := s.checkRecent(ctx, branch, domain.DomainSupplierInvoices, recentDates); reason != "" {
				fail(&outcome, "Supplier invoices: "+reason)
				invoiceFailures++
			}
		}

		if outcome.Status == domain.BranchFailed {
			s.logger.Warn("branch failed sanity", "branch", branch.Name, "tenant", branch.Tenant, "reason", outcome.Reason)
		}
		report.Branches[branch.Name] = outcome
	}

	report.Reports["stock"] = aggregate(stockFailures, len(branches))
	report.Reports["orders"] = aggregate(orderFailures, len(branches))
	report.Reports["supplier_invoices"] = aggregate(invoiceFailures, invoiceChecked)
	report.Outcome = runOutcome(report.Branches)

	return report
}

func (s *SanityChecker) checkStock(ctx context.Context, branch domain.Branch, runStartedAt time.Time) string {
	count, err := s.probe.StockCount(ctx, branch.Tenant, branch.Name)
	if err != nil {
		return fmt.Sprintf("check error: %v", err)
	}
	if count == 0 {
		return "no stock rows found after refresh"
	}

	stale, err := s.probe.StaleStockCount(ctx, branch.Tenant, branch.Name, runStartedAt)
	if err != nil {
		// A failed staleness probe is logged but does not fail the
		// branch; the presence check above already passed.
		s.logger.Warn("could not check stale stock rows", "branch", branch.Name, "error", err)
		return ""
	}
	if stale > 0 {
		return fmt.Sprintf("%d stale stock rows predate run start", stale)
	}
	return ""
}

func (s *SanityChecker) checkOrders(ctx context.Context, branch domain.Branch, dates []string) string {
	poReason := s.checkRecent(ctx, branch, domain.DomainPurchaseOrders, dates)
	if poReason == "" {
		return ""
	}
	boReason := s.checkRecent(ctx, branch, domain.DomainBranchOrders, dates)
	if boReason == "" {
		return ""
	}
	return poReason
}

func (s *SanityChecker) checkRecent(ctx context.Context, branch domain.Branch, d domain.DataDomain, dates []string) string {
	count, err := s.probe.RecentDocumentCount(ctx, branch.Tenant, branch.Name, d, dates)
	if err != nil {
		return fmt.Sprintf("check error: %v", err)
	}
	if count == 0 {
		return fmt.Sprintf("no documents dated %s or %s", dates[0], dates[1])
	}
	return ""
}

func branchHasSupplierInvoices(branch domain.Branch) bool {
	for _, b := range domain.BranchesForDomain(branch.Tenant, domain.DomainSupplierInvoices) {
		if b.Code == branch.Code {
			return true
		}
	}
	return false
}

func fail(outcome *domain.BranchOutcome, reason string) {
	outcome.Status = domain.BranchFailed
	if outcome.Reason != "" {
		outcome.Reason += "; "
	}
	outcome.Reason += reason
}

// aggregate maps failure counts onto a report status: no failures is
// success, all checked branches failing is failed, anything between is
// partial.
func aggregate(failures, checked int) domain.ReportStatus {
	switch {
	case failures == 0:
		return domain.ReportSuccess
	case failures == checked:
		return domain.ReportFailed
	default:
		return domain.ReportPartial
	}
}

func runOutcome(branches map[string]domain.BranchOutcome) domain.RunOutcome {
	failed := 0
	for _, outcome := range branches {
		if outcome.Status == domain.BranchFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		return domain.RunSuccess
	case failed == len(branches):
		return domain.RunFailed
	default:
		return domain.RunPartial
	}
}
