package fetchers

import (
	"context"
	"sync"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// stubSessions implements driven.SessionSource
type stubSessions struct {
	tenant string
	err    error
}

func (s *stubSessions) Session(ctx context.Context, tenant string) (*driven.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &driven.Session{
		Credential: &domain.Credential{Tenant: s.tenant, BaseURL: "https://upstream.example:5019"},
		Token:      "tok",
	}, nil
}

func (s *stubSessions) Invalidate(string) {}

// stubUpstream implements driven.UpstreamAPI from canned maps. Listing
// maps are keyed by branch number, detail maps by the reference the
// fetcher passes; missing keys yield empty results.
type stubUpstream struct {
	mu sync.Mutex

	stock    map[int][]driven.StockItem
	stockErr map[int]error

	poHeaders map[int][]driven.DocumentHeader
	poErr     map[int]error
	boHeaders map[int][]driven.DocumentHeader
	boErr     map[int]error
	siHeaders map[int][]driven.DocumentHeader
	siErr     map[int]error
	grHeaders map[int][]driven.DocumentHeader
	grErr     map[int]error

	hqInvoices   []driven.DocumentHeader
	hqInvErr     error
	hqTransfers  []driven.DocumentHeader
	hqTrErr      error
	hqListCalls  int

	lines   map[string][]driven.LineItem
	lineErr map[string]error

	detailCalls []string
}

func (s *stubUpstream) recordDetail(ref string) ([]driven.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailCalls = append(s.detailCalls, ref)
	if err := s.lineErr[ref]; err != nil {
		return nil, err
	}
	return s.lines[ref], nil
}

func (s *stubUpstream) detailRefs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.detailCalls...)
}

func (s *stubUpstream) Login(ctx context.Context, cred *domain.Credential) (string, error) {
	return "tok", nil
}

func (s *stubUpstream) BranchStock(ctx context.Context, cred *domain.Credential, token string, branchNum int) ([]driven.StockItem, error) {
	if err := s.stockErr[branchNum]; err != nil {
		return nil, err
	}
	return s.stock[branchNum], nil
}

func (s *stubUpstream) PurchaseOrders(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]driven.DocumentHeader, error) {
	if err := s.poErr[branchNum]; err != nil {
		return nil, err
	}
	return s.poHeaders[branchNum], nil
}

func (s *stubUpstream) PurchaseOrderDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, docNumber string) ([]driven.LineItem, error) {
	return s.recordDetail(docNumber)
}

func (s *stubUpstream) BranchOrders(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]driven.DocumentHeader, error) {
	if err := s.boErr[branchNum]; err != nil {
		return nil, err
	}
	return s.boHeaders[branchNum], nil
}

func (s *stubUpstream) BranchOrderDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, orderRef string) ([]driven.LineItem, error) {
	return s.recordDetail(orderRef)
}

func (s *stubUpstream) SupplierInvoices(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]driven.DocumentHeader, error) {
	if err := s.siErr[branchNum]; err != nil {
		return nil, err
	}
	return s.siHeaders[branchNum], nil
}

func (s *stubUpstream) SupplierInvoiceDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, docNumber string) ([]driven.LineItem, error) {
	return s.recordDetail(docNumber)
}

func (s *stubUpstream) GoodsReceivedNotes(ctx context.Context, cred *domain.Credential, token string, branchNum int, window domain.Window) ([]driven.DocumentHeader, error) {
	if err := s.grErr[branchNum]; err != nil {
		return nil, err
	}
	return s.grHeaders[branchNum], nil
}

func (s *stubUpstream) GoodsReceivedNoteDetail(ctx context.Context, cred *domain.Credential, token string, branchNum int, noteNumber string) ([]driven.LineItem, error) {
	return s.recordDetail(noteNumber)
}

func (s *stubUpstream) HQSalesInvoices(ctx context.Context, cred *domain.Credential, token string, window domain.Window) ([]driven.DocumentHeader, error) {
	s.mu.Lock()
	s.hqListCalls++
	s.mu.Unlock()
	if s.hqInvErr != nil {
		return nil, s.hqInvErr
	}
	return s.hqInvoices, nil
}

func (s *stubUpstream) HQSalesInvoiceDetail(ctx context.Context, cred *domain.Credential, token string, docNumber string) ([]driven.LineItem, error) {
	return s.recordDetail(docNumber)
}

func (s *stubUpstream) HQBranchTransfers(ctx context.Context, cred *domain.Credential, token string, window domain.Window) ([]driven.DocumentHeader, error) {
	s.mu.Lock()
	s.hqListCalls++
	s.mu.Unlock()
	if s.hqTrErr != nil {
		return nil, s.hqTrErr
	}
	return s.hqTransfers, nil
}

func (s *stubUpstream) HQBranchTransferDetail(ctx context.Context, cred *domain.Credential, token string, docID string) ([]driven.LineItem, error) {
	return s.recordDetail(docID)
}

// memLedger implements driven.DocumentLedger in memory
type memLedger struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newMemLedger() *memLedger {
	return &memLedger{keys: make(map[string]struct{})}
}

func (l *memLedger) IsProcessed(ctx context.Context, key domain.DocumentKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key.MemberKey()]
	return ok, nil
}

func (l *memLedger) MarkProcessed(ctx context.Context, key domain.DocumentKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key.MemberKey()] = struct{}{}
	return nil
}

func (l *memLedger) ExistingKeys(ctx context.Context, tenant string, d domain.DataDomain) (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]struct{}, len(l.keys))
	for k := range l.keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (l *memLedger) has(number, date string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[domain.DocumentKey{Number: number, Date: date}.MemberKey()]
	return ok
}

// memStockStore implements driven.StockStore
type memStockStore struct {
	mu   sync.Mutex
	rows []domain.StockRow
	err  error
}

func (s *memStockStore) ReplaceStock(ctx context.Context, rows []domain.StockRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	replaced := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		replaced[row.Tenant+"|"+row.Branch] = struct{}{}
	}
	kept := s.rows[:0]
	for _, row := range s.rows {
		if _, ok := replaced[row.Tenant+"|"+row.Branch]; !ok {
			kept = append(kept, row)
		}
	}
	s.rows = append(kept, rows...)
	return int64(len(rows)), nil
}

func (s *memStockStore) all() []domain.StockRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StockRow(nil), s.rows...)
}

// memGoodsReceivedStore implements driven.GoodsReceivedStore
type memGoodsReceivedStore struct {
	mu   sync.Mutex
	rows []domain.GoodsReceivedRow
}

func (s *memGoodsReceivedStore) InsertGoodsReceived(ctx context.Context, rows []domain.GoodsReceivedRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return int64(len(rows)), nil
}

func (s *memGoodsReceivedStore) all() []domain.GoodsReceivedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.GoodsReceivedRow(nil), s.rows...)
}

// memOrderStore implements driven.OrderStore
type memOrderStore struct {
	mu sync.Mutex
	po []domain.PurchaseOrderRow
	bo []domain.BranchOrderRow
}

func (s *memOrderStore) InsertPurchaseOrders(ctx context.Context, rows []domain.PurchaseOrderRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.po = append(s.po, rows...)
	return int64(len(rows)), nil
}

func (s *memOrderStore) InsertBranchOrders(ctx context.Context, rows []domain.BranchOrderRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bo = append(s.bo, rows...)
	return int64(len(rows)), nil
}

func (s *memOrderStore) purchaseOrders() []domain.PurchaseOrderRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PurchaseOrderRow(nil), s.po...)
}

func (s *memOrderStore) branchOrders() []domain.BranchOrderRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.BranchOrderRow(nil), s.bo...)
}

// memInvoiceStore implements driven.InvoiceStore
type memInvoiceStore struct {
	mu sync.Mutex
	si []domain.SupplierInvoiceRow
	hq []domain.HQInvoiceRow
}

func (s *memInvoiceStore) InsertSupplierInvoices(ctx context.Context, rows []domain.SupplierInvoiceRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.si = append(s.si, rows...)
	return int64(len(rows)), nil
}

func (s *memInvoiceStore) InsertHQInvoices(ctx context.Context, rows []domain.HQInvoiceRow) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hq = append(s.hq, rows...)
	return int64(len(rows)), nil
}

func (s *memInvoiceStore) supplierInvoices() []domain.SupplierInvoiceRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SupplierInvoiceRow(nil), s.si...)
}

func (s *memInvoiceStore) hqInvoices() []domain.HQInvoiceRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HQInvoiceRow(nil), s.hq...)
}
