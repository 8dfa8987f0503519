package services

import (
	"context"
	"sync"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// mockCredentialStore implements driven.CredentialStore for testing
type mockCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*domain.Credential
}

func newMockCredentialStore(creds ...*domain.Credential) *mockCredentialStore {
	m := &mockCredentialStore{creds: make(map[string]*domain.Credential)}
	for _, c := range creds {
		m.creds[c.Tenant] = c
	}
	return m
}

func (m *mockCredentialStore) Get(ctx context.Context, tenant string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[tenant]
	if !ok {
		return nil, domain.ErrNoCredentials
	}
	return cred, nil
}

func (m *mockCredentialStore) Save(ctx context.Context, cred *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Tenant] = cred
	return nil
}

func (m *mockCredentialStore) Delete(ctx context.Context, tenant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, tenant)
	return nil
}

func (m *mockCredentialStore) ListEnabled(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tenants []string
	for tenant, cred := range m.creds {
		if cred.Enabled {
			tenants = append(tenants, tenant)
		}
	}
	return tenants, nil
}

// mockUpstream implements driven.UpstreamAPI; only Login carries logic,
// everything else returns empty results.
type mockUpstream struct {
	mu         sync.Mutex
	loginFn    func(cred *domain.Credential) (string, error)
	loginCalls int
}

func (m *mockUpstream) Login(ctx context.Context, cred *domain.Credential) (string, error) {
	m.mu.Lock()
	m.loginCalls++
	fn := m.loginFn
	m.mu.Unlock()
	if fn != nil {
		return fn(cred)
	}
	return "token-" + cred.Tenant, nil
}

func (m *mockUpstream) logins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginCalls
}

func (m *mockUpstream) BranchStock(context.Context, *domain.Credential, string, int) ([]driven.StockItem, error) {
	return nil, nil
}

func (m *mockUpstream) PurchaseOrders(context.Context, *domain.Credential, string, int, domain.Window) ([]driven.DocumentHeader, error) {
	return nil, nil
}

func (m *mockUpstream) PurchaseOrderDetail(context.Context, *domain.Credential, string, int, string) ([]driven.LineItem, error) {
	return nil, nil
}

func (m *mockUpstream) BranchOrders(context.Context, *domain.Credential, string, int, domain.Window) ([]driven.DocumentHeader, error) {
	return nil, nil
}

func (m *mockUpstream) BranchOrderDetail(context.Context, *domain.Credential, string, int, string) ([]driven.LineItem, error) {
	return nil, nil
}

func (m *mockUpstream) SupplierInvoices(context.Context, *domain.Credential, string, int, domain.Window) ([]driven.DocumentHeader, error) {
	return nil, nil
}

func (m *mockUpstream) SupplierInvoiceDetail(context.Context, *domain.Credential, string, int, string) ([]driven.LineItem, error) {
	return nil, nil
}

func (m *mockUpstream) GoodsReceivedNotes(context.Context, *domain.Credential, string, int, domain.Window) ([]driven.DocumentHeader, error) {
	return nil, nil
}

func (m *mockUpstream) GoodsReceivedNoteDetail(context.Context, *domain.Credential, string, int, string) ([]driven.LineItem, error) {
	return nil, nil
}

func (m *mockUpstream) HQSalesInvoices(context.Context, *domain.Credential, string, domain.Window) ([]driven.DocumentHeader, error) {
	return nil, nil
}

func (m *mockUpstream) HQSalesInvoiceDetail(context.Context, *domain.Credential, string, string) ([]driven.LineItem, error) {
	return nil, nil
}

func (m *mockUpstream) HQBranchTransfers(context.Context, *domain.Credential, string, domain.Window) ([]driven.DocumentHeader, error) {
	return nil, nil
}

func (m *mockUpstream) HQBranchTransferDetail(context.Context, *domain.Credential, string, string) ([]driven.LineItem, error) {
	return nil, nil
}

// mockStatusStore implements driven.RefreshStatusStore in memory
type mockStatusStore struct {
	mu      sync.Mutex
	snap    *domain.RefreshStatusSnapshot
	saveErr error
	saves   int
}

func (m *mockStatusStore) Load(ctx context.Context) (*domain.RefreshStatusSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return &domain.RefreshStatusSnapshot{}, nil
	}
	return m.snap, nil
}

func (m *mockStatusStore) Save(ctx context.Context, snap *domain.RefreshStatusSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *snap
	m.snap = &copied
	m.saves++
	return nil
}

// mockSanityProbe implements driven.SanityProbe with per-branch hooks
type mockSanityProbe struct {
	stockCounts  map[string]int
	staleCounts  map[string]int
	recentCounts map[string]int // keyed branch|domain
	err          error
}

func (m *mockSanityProbe) StockCount(ctx context.Context, tenant, branch string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.stockCounts[branch], nil
}

func (m *mockSanityProbe) StaleStockCount(ctx context.Context, tenant, branch string, runStartedAt time.Time) (int, error) {
	return m.staleCounts[branch], nil
}

func (m *mockSanityProbe) RecentDocumentCount(ctx context.Context, tenant, branch string, d domain.DataDomain, dates []string) (int, error) {
	return m.recentCounts[branch+"|"+string(d)], nil
}

// mockRetentionStore implements driven.RetentionStore
type mockRetentionStore struct {
	mu      sync.Mutex
	deleted map[string]int64
	failOn  map[string]error
	calls   []string
}

func newMockRetentionStore() *mockRetentionStore {
	return &mockRetentionStore{
		deleted: make(map[string]int64),
		failOn:  make(map[string]error),
	}
}

func (m *mockRetentionStore) DeleteOlderThan(ctx context.Context, table, dateColumn string, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, table)
	if err := m.failOn[table]; err != nil {
		return 0, err
	}
	return m.deleted[table], nil
}

// mockLock implements driven.RefreshLock
type mockLock struct {
	mu       sync.Mutex
	held     bool
	acquires int
	releases int
	failWith error
}

func (m *mockLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	if m.failWith != nil {
		return false, m.failWith
	}
	if m.held {
		return false, nil
	}
	m.held = true
	return true, nil
}

func (m *mockLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	m.held = false
	return nil
}

func (m *mockLock) IsLocked(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held, nil
}

func (m *mockLock) Ping(ctx context.Context) error { return nil }
