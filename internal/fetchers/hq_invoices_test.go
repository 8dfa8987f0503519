package fetchers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

func newHQFetcher(api *stubUpstream, ledger *memLedger, store *memInvoiceStore) *HQInvoiceFetcher {
	return NewHQInvoiceFetcher(HQInvoiceFetcherConfig{
		Sessions: &stubSessions{tenant: "NILA"},
		API:      api,
		Ledger:   ledger,
		Store:    store,
	})
}

func TestHQInvoiceFetcher_FiltersUnservedAccounts(t *testing.T) {
	api := &stubUpstream{
		hqInvoices: []driven.DocumentHeader{
			{Number: "INV-BR001-900", Date: "2026-02-25", OrderRef: "9001", Account: "DAIMA MERU RETAIL"},
			{Number: "INV-BR001-901", Date: "2026-02-25", OrderRef: "9002", Account: "JOHN DOE"},
		},
		hqTransfers: []driven.DocumentHeader{
			{Number: "TRF-BR001-55", Date: "2026-02-26", OrderRef: "5501", Account: "DAIMA MERU WHOLESALE"},
		},
		lines: map[string][]driven.LineItem{
			"9001": {{ItemCode: "MR-001", ItemName: "PARACETAMOL 500MG", Quantity: 20, UnitPrice: 150, Total: 3000}},
			"9002": {{ItemCode: "MR-001", ItemName: "PARACETAMOL 500MG", Quantity: 1, UnitPrice: 150, Total: 150}},
			"5501": {{ItemCode: "MR-002", ItemName: "AMOXICILLIN 250MG", Quantity: 10, UnitPrice: 80, Total: 800}},
		},
	}
	store := &memInvoiceStore{}

	result, err := newHQFetcher(api, newMemLedger(), store).Fetch(context.Background(), "NILA", domain.Window{})
	require.NoError(t, err)

	// Walk-in customer invoices share the endpoint and must be dropped.
	assert.ElementsMatch(t, []string{"9001", "5501"}, api.detailRefs())
	assert.Equal(t, 2, result.Documents)
	assert.Equal(t, domain.BranchSuccess, result.PerBranch["HQ invoices"].Status)
	assert.Equal(t, domain.BranchSuccess, result.PerBranch["HQ transfers"].Status)

	rows := store.hqInvoices()
	require.Len(t, rows, 2)
	byType := map[domain.HQRecordType]domain.HQInvoiceRow{}
	for _, row := range rows {
		byType[row.RecordType] = row
	}
	assert.Equal(t, "DAIMA MERU RETAIL", byType[domain.HQRecordInvoice].Branch)
	assert.Equal(t, "DAIMA MERU WHOLESALE", byType[domain.HQRecordTransfer].Branch)
}

func TestHQInvoiceFetcher_SkipsTenantWithoutHQ(t *testing.T) {
	api := &stubUpstream{}

	fetcher := NewHQInvoiceFetcher(HQInvoiceFetcherConfig{
		Sessions: &stubSessions{tenant: "DAIMA"},
		API:      api,
		Ledger:   newMemLedger(),
		Store:    &memInvoiceStore{},
	})

	result, err := fetcher.Fetch(context.Background(), "DAIMA", domain.Window{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Documents)
	assert.Equal(t, 0, api.hqListCalls, "no headquarters branch, no upstream calls")
}

func TestHQInvoiceFetcher_ListingFailureIsPerStream(t *testing.T) {
	api := &stubUpstream{
		hqInvErr: errors.New("gateway timeout"),
		hqTransfers: []driven.DocumentHeader{
			{Number: "TRF-BR001-56", Date: "2026-02-26", OrderRef: "5601", Account: "DAIMA THIKA RETAIL"},
		},
		lines: map[string][]driven.LineItem{
			"5601": {{ItemCode: "MR-002", ItemName: "AMOXICILLIN 250MG", Quantity: 4, UnitPrice: 80, Total: 320}},
		},
	}

	result, err := newHQFetcher(api, newMemLedger(), &memInvoiceStore{}).Fetch(context.Background(), "NILA", domain.Window{})
	require.NoError(t, err)

	assert.Equal(t, domain.BranchFailed, result.PerBranch["HQ invoices"].Status)
	assert.Equal(t, domain.BranchSuccess, result.PerBranch["HQ transfers"].Status)
	assert.Contains(t, result.Error, "invoices listing")
	assert.Equal(t, 1, result.Documents)
}

func TestHQInvoiceFetcher_FallsBackToNumberTail(t *testing.T) {
	api := &stubUpstream{
		hqInvoices: []driven.DocumentHeader{
			{Number: "INV-BR001-902", Date: "2026-02-27", Account: "DAIMA MAKUTANO RETAILS"},
		},
		lines: map[string][]driven.LineItem{
			"902": {{ItemCode: "MR-003", ItemName: "IBUPROFEN 400MG", Quantity: 2, UnitPrice: 200, Total: 400}},
		},
	}

	result, err := newHQFetcher(api, newMemLedger(), &memInvoiceStore{}).Fetch(context.Background(), "NILA", domain.Window{})
	require.NoError(t, err)

	assert.Equal(t, []string{"902"}, api.detailRefs())
	assert.Equal(t, 1, result.Documents)
}
