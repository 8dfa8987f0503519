package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

var sanityNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func sanityBranches() []domain.Branch {
	// BABA DOGO HQ procures from suppliers; ACCRA NILA does not.
	return []domain.Branch{
		{Code: "BR001", Name: "BABA DOGO HQ", Tenant: "NILA", Num: 1},
		{Code: "BR002", Name: "ACCRA NILA", Tenant: "NILA", Num: 2},
	}
}

func healthyProbe() *mockSanityProbe {
	return &mockSanityProbe{
		stockCounts: map[string]int{"BABA DOGO HQ": 1200, "ACCRA NILA": 800},
		staleCounts: map[string]int{},
		recentCounts: map[string]int{
			"BABA DOGO HQ|purchase_orders":   3,
			"ACCRA NILA|branch_orders":       2,
			"BABA DOGO HQ|supplier_invoices": 1,
		},
	}
}

func TestSanityChecker_AllHealthy(t *testing.T) {
	checker := NewSanityChecker(SanityCheckerConfig{
		Probe: healthyProbe(),
		Now:   func() time.Time { return sanityNow },
	})

	report := checker.Validate(context.Background(), sanityBranches(), sanityNow.Add(-5*time.Minute))

	assert.Equal(t, domain.RunSuccess, report.Outcome)
	assert.Equal(t, domain.ReportSuccess, report.Reports["stock"])
	assert.Equal(t, domain.ReportSuccess, report.Reports["orders"])
	assert.Equal(t, domain.ReportSuccess, report.Reports["supplier_invoices"])
	for name, outcome := range report.Branches {
		assert.Equal(t, domain.BranchSuccess, outcome.Status, name)
	}
}

func TestSanityChecker_BranchOrdersSatisfyOrderCheck(t *testing.T) {
	// ACCRA NILA has zero purchase orders but recent branch orders;
	// the order check accepts either path.
	probe := healthyProbe()
	delete(probe.recentCounts, "ACCRA NILA|branch_orders")
	probe.recentCounts["ACCRA NILA|branch_orders"] = 4

	checker := NewSanityChecker(SanityCheckerConfig{
		Probe: probe,
		Now:   func() time.Time { return sanityNow },
	})

	report := checker.Validate(context.Background(), sanityBranches(), sanityNow.Add(-5*time.Minute))
	assert.Equal(t, domain.BranchSuccess, report.Branches["ACCRA NILA"].Status)
}

func TestSanityChecker_StaleStockFailsBranch(t *testing.T) {
	probe := healthyProbe()
	probe.staleCounts["ACCRA NILA"] = 37

	checker := NewSanityChecker(SanityCheckerConfig{
		Probe: probe,
		Now:   func() time.Time { return sanityNow },
	})

	report := checker.Validate(context.Background(), sanityBranches(), sanityNow.Add(-5*time.Minute))

	assert.Equal(t, domain.RunPartial, report.Outcome)
	assert.Equal(t, domain.BranchFailed, report.Branches["ACCRA NILA"].Status)
	assert.Contains(t, report.Branches["ACCRA NILA"].Reason, "stale stock rows")
	assert.Equal(t, domain.ReportPartial, report.Reports["stock"])
}

func TestSanityChecker_MissingStockFailsBranch(t *testing.T) {
	probe := healthyProbe()
	probe.stockCounts["BABA DOGO HQ"] = 0

	checker := NewSanityChecker(SanityCheckerConfig{
		Probe: probe,
		Now:   func() time.Time { return sanityNow },
	})

	report := checker.Validate(context.Background(), sanityBranches(), sanityNow.Add(-5*time.Minute))
	assert.Equal(t, domain.BranchFailed, report.Branches["BABA DOGO HQ"].Status)
	assert.Contains(t, report.Branches["BABA DOGO HQ"].Reason, "no stock rows")
}

func TestSanityChecker_SupplierInvoicesOnlyProcurementBranches(t *testing.T) {
	// Neither branch has supplier invoices; only BABA DOGO HQ is
	// checked, so the report fails rather than going partial.
	probe := healthyProbe()
	delete(probe.recentCounts, "BABA DOGO HQ|supplier_invoices")

	checker := NewSanityChecker(SanityCheckerConfig{
		Probe: probe,
		Now:   func() time.Time { return sanityNow },
	})

	report := checker.Validate(context.Background(), sanityBranches(), sanityNow.Add(-5*time.Minute))

	assert.Equal(t, domain.ReportFailed, report.Reports["supplier_invoices"])
	assert.Equal(t, domain.BranchFailed, report.Branches["BABA DOGO HQ"].Status)
	assert.Equal(t, domain.BranchSuccess, report.Branches["ACCRA NILA"].Status)
}

func TestSanityChecker_AllBranchesFailing(t *testing.T) {
	probe := &mockSanityProbe{
		stockCounts:  map[string]int{},
		staleCounts:  map[string]int{},
		recentCounts: map[string]int{},
	}

	checker := NewSanityChecker(SanityCheckerConfig{
		Probe: probe,
		Now:   func() time.Time { return sanityNow },
	})

	report := checker.Validate(context.Background(), sanityBranches(), sanityNow.Add(-5*time.Minute))

	assert.Equal(t, domain.RunFailed, report.Outcome)
	assert.Equal(t, domain.ReportFailed, report.Reports["stock"])
	assert.Equal(t, domain.ReportFailed, report.Reports["orders"])
}
