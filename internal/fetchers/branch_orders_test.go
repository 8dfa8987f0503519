package fetchers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

func TestBranchOrderFetcher_UsesOrderRefForDetail(t *testing.T) {
	api := &stubUpstream{
		boHeaders: map[int][]driven.DocumentHeader{
			8: {
				{Number: "ORD-BR008-77", Date: "2026-02-10", OrderRef: "5012"},
				{Number: "ORD-BR008-78", Date: "2026-02-11"},
			},
		},
		lines: map[string][]driven.LineItem{
			"5012": {
				{ItemCode: "MR-001", ItemName: "PARACETAMOL 500MG", Quantity: 10, UnitPrice: 150, Total: 1500,
					SenderBranch: "BR008", ReceiverBranch: "BR009", DoneBy: "jkamau", Status: "POSTED"},
			},
			"78": {
				{ItemCode: "MR-002", ItemName: "AMOXICILLIN 250MG", Quantity: 5, UnitPrice: 80, Total: 400,
					ReceiverBranch: "BR013"},
			},
		},
	}
	store := &memOrderStore{}

	fetcher := NewBranchOrderFetcher(BranchOrderFetcherConfig{
		Sessions: &stubSessions{tenant: "DAIMA"},
		API:      api,
		Ledger:   newMemLedger(),
		Store:    store,
	})

	result, err := fetcher.Fetch(context.Background(), "DAIMA", domain.Window{})
	require.NoError(t, err)

	// The raw order reference wins; the numeric tail is the fallback.
	assert.ElementsMatch(t, []string{"5012", "78"}, api.detailRefs())
	assert.Equal(t, 2, result.Documents)

	rows := store.branchOrders()
	require.Len(t, rows, 2)

	byDoc := map[string]domain.BranchOrderRow{}
	for _, row := range rows {
		byDoc[row.DocumentNumber] = row
	}

	withSender := byDoc["ORD-BR008-77"]
	assert.Equal(t, "DAIMA MERU RETAIL", withSender.SourceBranch)
	assert.Equal(t, "DAIMA THIKA RETAIL", withSender.DestinationBranch)
	assert.Equal(t, "POSTED", withSender.Status)

	// Missing sender code falls back to the listing branch.
	withoutSender := byDoc["ORD-BR008-78"]
	assert.Equal(t, "DAIMA MERU RETAIL", withoutSender.SourceBranch)
	assert.Equal(t, "DAIMA MERU WHOLESALE", withoutSender.DestinationBranch)
}

func TestBranchOrderFetcher_CoversEveryBranch(t *testing.T) {
	fetcher := NewBranchOrderFetcher(BranchOrderFetcherConfig{
		Sessions: &stubSessions{tenant: "DAIMA"},
		API:      &stubUpstream{},
		Ledger:   newMemLedger(),
		Store:    &memOrderStore{},
	})

	result, err := fetcher.Fetch(context.Background(), "DAIMA", domain.Window{})
	require.NoError(t, err)

	// Every branch can raise transfer orders, not just procurement ones.
	assert.Len(t, result.PerBranch, len(domain.Branches("DAIMA")))
	for name, outcome := range result.PerBranch {
		assert.Equal(t, domain.BranchNoData, outcome.Status, name)
	}
}

func TestBranchLabel(t *testing.T) {
	assert.Equal(t, "ACCRA NILA", branchLabel("BR002", "fallback"))
	assert.Equal(t, "fallback", branchLabel("", "fallback"))
	assert.Equal(t, "BR999", branchLabel("BR999", "fallback"), "unknown codes pass through")
}
