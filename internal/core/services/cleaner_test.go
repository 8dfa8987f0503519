package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionCleaner_DeletesFromEveryTable(t *testing.T) {
	store := newMockRetentionStore()
	store.deleted["purchase_orders"] = 120
	store.deleted["hq_invoices"] = 7

	cleaner := NewRetentionCleaner(RetentionCleanerConfig{
		Store: store,
		Now:   func() time.Time { return time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC) },
	})

	deleted, err := cleaner.Run(context.Background(), 365)
	require.NoError(t, err)

	assert.Len(t, deleted, 4)
	assert.Equal(t, int64(120), deleted["purchase_orders"])
	assert.Equal(t, int64(7), deleted["hq_invoices"])
	assert.Equal(t, int64(0), deleted["branch_orders"])
	assert.Equal(t, int64(0), deleted["supplier_invoices"])
}

func TestRetentionCleaner_FailureDoesNotStopOtherTables(t *testing.T) {
	store := newMockRetentionStore()
	store.failOn["branch_orders"] = errors.New("deadlock detected")

	cleaner := NewRetentionCleaner(RetentionCleanerConfig{Store: store})

	deleted, err := cleaner.Run(context.Background(), 90)
	assert.Error(t, err)

	// The failing table is absent; the other three were still attempted.
	assert.Len(t, deleted, 3)
	assert.Len(t, store.calls, 4)
	assert.NotContains(t, deleted, "branch_orders")
}
