package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

// fakeRefreshService implements driving.RefreshService
type fakeRefreshService struct {
	triggerErr error
	domains    []domain.DataDomain
	snap       *domain.RefreshStatusSnapshot
	age        domain.DataAge
	cleanupErr error
	deleted    map[string]int64
}

func (f *fakeRefreshService) Trigger(ctx context.Context, domains []domain.DataDomain) error {
	f.domains = domains
	return f.triggerErr
}

func (f *fakeRefreshService) Status(ctx context.Context) (*domain.RefreshStatusSnapshot, domain.DataAge) {
	snap := f.snap
	if snap == nil {
		snap = &domain.RefreshStatusSnapshot{}
	}
	return snap, f.age
}

func (f *fakeRefreshService) Cleanup(ctx context.Context, retentionDays int) (map[string]int64, error) {
	if f.cleanupErr != nil {
		return nil, f.cleanupErr
	}
	return f.deleted, nil
}

type failingPinger struct{ err error }

func (p *failingPinger) Ping(ctx context.Context) error { return p.err }

func newTestServer(refresh *fakeRefreshService, db, lock Pinger) *Server {
	return NewServer(Config{Version: "test"}, refresh, nil, db, lock)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleTriggerRefresh(t *testing.T) {
	refresh := &fakeRefreshService{}
	rec := doRequest(newTestServer(refresh, nil, nil), http.MethodPost, "/api/refresh/trigger",
		`{"domains":["stock","purchase_orders"]}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(refresh.domains) != 2 || refresh.domains[0] != domain.DomainStock {
		t.Errorf("domains = %v", refresh.domains)
	}
}

func TestHandleTriggerRefresh_EmptyBody(t *testing.T) {
	refresh := &fakeRefreshService{}
	rec := doRequest(newTestServer(refresh, nil, nil), http.MethodPost, "/api/refresh/trigger", "")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if refresh.domains != nil {
		t.Errorf("expected nil domains for full refresh, got %v", refresh.domains)
	}
}

func TestHandleTriggerRefresh_Conflict(t *testing.T) {
	refresh := &fakeRefreshService{triggerErr: domain.ErrRefreshInProgress}
	rec := doRequest(newTestServer(refresh, nil, nil), http.MethodPost, "/api/refresh/trigger", "")

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandleTriggerRefresh_UnknownDomain(t *testing.T) {
	refresh := &fakeRefreshService{triggerErr: domain.ErrBadRequest}
	rec := doRequest(newTestServer(refresh, nil, nil), http.MethodPost, "/api/refresh/trigger", "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTriggerRefresh_MalformedBody(t *testing.T) {
	rec := doRequest(newTestServer(&fakeRefreshService{}, nil, nil),
		http.MethodPost, "/api/refresh/trigger", `{"domains":`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRefreshStatus(t *testing.T) {
	last := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	seconds := int64(600)
	refresh := &fakeRefreshService{
		snap: &domain.RefreshStatusSnapshot{LastSuccessfulAt: &last, Progress: 1},
		age:  domain.DataAge{Seconds: &seconds, Message: "10 minutes ago"},
	}

	rec := doRequest(newTestServer(refresh, nil, nil), http.MethodGet, "/api/refresh/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := body["data_age"]; !ok {
		t.Error("response missing data_age")
	}
	if _, ok := body["last_successful_at"]; !ok {
		t.Error("response missing last_successful_at")
	}
}

func TestHandleCleanup(t *testing.T) {
	refresh := &fakeRefreshService{deleted: map[string]int64{"purchase_orders": 12}}
	rec := doRequest(newTestServer(refresh, nil, nil), http.MethodPost, "/api/refresh/cleanup",
		`{"retention_days":90}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		RowsDeleted map[string]int64 `json:"rows_deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RowsDeleted["purchase_orders"] != 12 {
		t.Errorf("rows_deleted = %v", body.RowsDeleted)
	}
}

func TestHandleCleanup_NegativeRetention(t *testing.T) {
	rec := doRequest(newTestServer(&fakeRefreshService{}, nil, nil),
		http.MethodPost, "/api/refresh/cleanup", `{"retention_days":-1}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		lock       Pinger
		wantStatus int
		wantLock   string
	}{
		{"healthy with lock", &failingPinger{}, &failingPinger{}, http.StatusOK, "ok"},
		{"no lock backend", &failingPinger{}, nil, http.StatusOK, "disabled"},
		{"lock down degrades only", &failingPinger{}, &failingPinger{err: errors.New("down")}, http.StatusOK, "unavailable"},
		{"database down", &failingPinger{err: errors.New("down")}, nil, http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(newTestServer(&fakeRefreshService{}, tt.db, tt.lock),
				http.MethodGet, "/ready", "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLock == "" {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["lock"] != tt.wantLock {
				t.Errorf("lock = %q, want %q", body["lock"], tt.wantLock)
			}
		})
	}
}

func TestHandleHealthAndVersion(t *testing.T) {
	s := newTestServer(&fakeRefreshService{}, nil, nil)

	if rec := doRequest(s, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec := doRequest(s, http.MethodGet, "/version", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("version status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("version = %q", body["version"])
	}
}
