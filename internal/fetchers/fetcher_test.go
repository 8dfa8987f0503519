package fetchers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

func TestDocNumberTail(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"PO-BR013-1042", "1042"},
		{"ORD-BR002-77", "77"},
		{"1042", "1042"},
		{"", ""},
		{"SI-", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, docNumberTail(tt.number), tt.number)
	}
}

func TestBranchOutcomeFor(t *testing.T) {
	tests := []struct {
		name       string
		candidates int
		processed  int
		failed     int
		want       domain.BranchStatus
	}{
		{"all processed", 5, 5, 0, domain.BranchSuccess},
		{"nothing listed", 0, 0, 0, domain.BranchNoData},
		{"everything already ledgered", 5, 0, 0, domain.BranchSuccess},
		{"one failure taints the branch", 5, 4, 1, domain.BranchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := branchOutcomeFor(tt.candidates, tt.processed, tt.failed)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}
