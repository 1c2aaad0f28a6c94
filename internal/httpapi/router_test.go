package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/config"
	"github.com/bengobox/church-admin/internal/errs"
	"github.com/bengobox/church-admin/internal/httpapi/handlers"
	"github.com/bengobox/church-admin/internal/httpapi/middleware"
	"github.com/bengobox/church-admin/internal/services/products"
	"github.com/bengobox/church-admin/internal/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type productStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]products.Product
}

func (s *productStore) Create(_ context.Context, p *products.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	s.items[p.ID] = *p
	return nil
}

func (s *productStore) Get(_ context.Context, id uuid.UUID) (*products.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, errs.NotFound("product")
	}
	return &p, nil
}

func (s *productStore) GetByCode(_ context.Context, code string) (*products.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, errs.NotFound("product")
}

func (s *productStore) List(context.Context) ([]products.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]products.Product, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	return out, nil
}

func (s *productStore) Update(_ context.Context, p *products.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.ID]; !ok {
		return errs.NotFound("product")
	}
	p.UpdatedAt = time.Now().UTC()
	s.items[p.ID] = *p
	return nil
}

func (s *productStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return errs.NotFound("product")
	}
	delete(s.items, id)
	return nil
}

type auditStore struct {
	mu      sync.Mutex
	records []audit.Record
}

func (s *auditStore) Insert(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *auditStore) List(_ context.Context, f audit.Filter) ([]audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []audit.Record{}
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if f.UserID != nil && rec.UserID != *f.UserID {
			continue
		}
		if f.EntityType != "" && rec.EntityType != f.EntityType {
			continue
		}
		if f.Action != "" && rec.Action != f.Action {
			continue
		}
		if f.EntityID != "" && (rec.EntityID == nil || *rec.EntityID != f.EntityID) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *auditStore) snapshot() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Record(nil), s.records...)
}

type testServer struct {
	handler http.Handler
	audit   *auditStore
	bearer  string
	userID  uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens, err := token.NewService(config.TokenConfig{Secret: strings.Repeat("x", 32), Issuer: "test", TTL: time.Hour})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	userID := uuid.New()
	raw, _, err := tokens.Mint(userID, "admin@example.com")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	logger := zap.NewNop()
	store := &auditStore{}
	recorder := audit.NewRecorder(store, logger)
	productService := products.New(&productStore{items: map[uuid.UUID]products.Product{}}, recorder)

	handler := NewRouter(RouterDeps{
		HealthHandler:      handlers.Health,
		RequireAuthHandler: middleware.NewAuth(tokens, nil, logger).RequireAuth,
		Products:           handlers.NewProductHandler(productService, logger),
		Audit:              handlers.NewAuditHandler(recorder, logger),
	})
	return &testServer{handler: handler, audit: store, bearer: "Bearer " + raw, userID: userID}
}

func (s *testServer) do(t *testing.T, method, path, auth string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "router-test")
	req.RemoteAddr = "203.0.113.10:5000"
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, out
}

func TestProductLifecycleIsAudited(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/products", s.bearer, map[string]any{"name": "Bíblia", "code": "B1", "price": 1000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %v", rec.Code, body)
	}
	product := body["product"].(map[string]any)
	id := product["id"].(string)

	logs := s.audit.snapshot()
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit row after create, got %d", len(logs))
	}
	created := logs[0]
	if created.Action != audit.ActionCreate || created.EntityType != audit.EntityProducts || *created.EntityID != id {
		t.Fatalf("unexpected create record %+v", created)
	}
	if created.UserID != s.userID || created.OldData != nil || created.NewData["price"] != float64(1000) {
		t.Fatalf("unexpected create snapshot %+v", created)
	}
	if created.IPAddress == nil || *created.IPAddress != "203.0.113.10" || created.UserAgent == nil || *created.UserAgent != "router-test" {
		t.Fatalf("request metadata not captured: %+v", created)
	}

	rec, body = s.do(t, http.MethodPut, "/api/products/"+id, s.bearer, map[string]any{"price": 1200})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status %d: %v", rec.Code, body)
	}
	logs = s.audit.snapshot()
	updated := logs[len(logs)-1]
	if updated.Action != audit.ActionUpdate || updated.OldData["price"] != float64(1000) || updated.NewData["price"] != float64(1200) {
		t.Fatalf("unexpected update record %+v", updated)
	}
	if updated.OldData["name"] != updated.NewData["name"] {
		t.Fatalf("unchanged fields must match: %v vs %v", updated.OldData["name"], updated.NewData["name"])
	}

	rec, body = s.do(t, http.MethodPost, "/api/products", s.bearer, map[string]any{"name": "Hinário", "code": "B1", "price": 500})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status %d: %v", rec.Code, body)
	}
	if got := len(s.audit.snapshot()); got != 2 {
		t.Fatalf("duplicate must not be audited, have %d rows", got)
	}

	rec, body = s.do(t, http.MethodDelete, "/api/products/"+id, s.bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status %d: %v", rec.Code, body)
	}
	logs = s.audit.snapshot()
	deleted := logs[len(logs)-1]
	if deleted.Action != audit.ActionDelete || deleted.NewData != nil || deleted.OldData["price"] != float64(1200) {
		t.Fatalf("unexpected delete record %+v", deleted)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/products/"+id, s.bearer, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status %d", rec.Code)
	}

	rec, body = s.do(t, http.MethodGet, "/api/audit?entityType=products&entityId="+id, s.bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit status %d: %v", rec.Code, body)
	}
	if body["count"] != float64(3) || body["limit"] != float64(audit.DefaultLimit) || body["offset"] != float64(0) {
		t.Fatalf("unexpected audit page %v", body)
	}
	first := body["logs"].([]any)[0].(map[string]any)
	if first["action"] != string(audit.ActionDelete) {
		t.Fatalf("audit must be newest first, got %v", first["action"])
	}

	_, body = s.do(t, http.MethodGet, "/api/audit?userId="+s.userID.String()+"&action=CREATE&entityType=products", s.bearer, nil)
	if body["count"] != float64(1) {
		t.Fatalf("expected one CREATE by the caller, got %v", body)
	}
	_, body = s.do(t, http.MethodGet, "/api/audit?userId="+uuid.NewString(), s.bearer, nil)
	if body["count"] != float64(0) {
		t.Fatalf("expected no rows for another user, got %v", body)
	}
}

func TestUnauthenticatedRequestsAreRejectedWithoutAudit(t *testing.T) {
	s := newTestServer(t)

	for _, auth := range []string{"", "Bearer nonsense", "Token abc"} {
		rec, body := s.do(t, http.MethodPost, "/api/products", auth, map[string]any{"name": "X", "code": "X1", "price": 1})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("auth %q: status %d", auth, rec.Code)
		}
		if body["code"] != "unauthorized" {
			t.Fatalf("auth %q: unexpected body %v", auth, body)
		}
	}
	if got := len(s.audit.snapshot()); got != 0 {
		t.Fatalf("rejected requests must not be audited, have %d rows", got)
	}
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
		code   string
	}{
		{name: "validation", method: http.MethodPost, path: "/api/products", body: map[string]any{"name": "X", "price": 1}, want: http.StatusBadRequest, code: "validation_failed"},
		{name: "unknown field", method: http.MethodPost, path: "/api/products", body: map[string]any{"colour": "red"}, want: http.StatusBadRequest, code: "invalid_request"},
		{name: "malformed id", method: http.MethodGet, path: "/api/products/not-a-uuid", want: http.StatusNotFound, code: "not_found"},
		{name: "unknown id", method: http.MethodDelete, path: "/api/products/" + uuid.NewString(), want: http.StatusNotFound, code: "not_found"},
		{name: "bad audit action", method: http.MethodGet, path: "/api/audit?action=EXPLODE", want: http.StatusBadRequest, code: "validation_failed"},
		{name: "bad audit limit", method: http.MethodGet, path: "/api/audit?limit=-1", want: http.StatusBadRequest, code: "validation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := s.do(t, tt.method, tt.path, s.bearer, tt.body)
			if rec.Code != tt.want || body["code"] != tt.code {
				t.Fatalf("got %d %v, want %d %s", rec.Code, body, tt.want, tt.code)
			}
		})
	}
	if got := len(s.audit.snapshot()); got != 0 {
		t.Fatalf("failed requests must not be audited, have %d rows", got)
	}
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: %d %v", rec.Code, body)
	}
}
