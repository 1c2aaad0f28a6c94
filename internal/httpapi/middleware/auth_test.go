package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bengobox/church-admin/internal/config"
	"github.com/bengobox/church-admin/internal/token"
	"github.com/google/uuid"
)

type revocationSet struct {
	ids map[string]bool
	err error
}

func (s *revocationSet) IsRevoked(_ context.Context, id string) (bool, error) {
	return s.ids[id], s.err
}

func newTokens(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(config.TokenConfig{Secret: strings.Repeat("s", 32), Issuer: "test", TTL: time.Hour})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

func TestRequireAuth(t *testing.T) {
	tokens := newTokens(t)
	userID := uuid.New()
	valid, _, err := tokens.Mint(userID, "admin@example.com")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	revoked, _, _ := tokens.Mint(userID, "admin@example.com")
	revokedIdentity, err := tokens.Verify(revoked)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	auth := NewAuth(tokens, &revocationSet{ids: map[string]bool{revokedIdentity.TokenID: true}}, nil)

	var reached *token.Identity
	handler := auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantReason string
	}{
		{name: "valid", header: "Bearer " + valid, wantStatus: http.StatusNoContent},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized, wantReason: token.ReasonMissingToken},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantReason: token.ReasonMissingToken},
		{name: "garbage", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized, wantReason: token.ReasonMalformedToken},
		{name: "revoked", header: "Bearer " + revoked, wantStatus: http.StatusUnauthorized, wantReason: ReasonRevoked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = nil
			r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusUnauthorized {
				if reached == nil || reached.UserID != userID {
					t.Fatalf("identity not propagated: %+v", reached)
				}
				return
			}
			if reached != nil {
				t.Fatalf("handler ran for rejected request")
			}
			var body struct {
				Code    string         `json:"code"`
				Details map[string]any `json:"details"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != "unauthorized" || body.Details["reason"] != tt.wantReason {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestRequireAuthRevocationStoreDown(t *testing.T) {
	tokens := newTokens(t)
	raw, _, _ := tokens.Mint(uuid.New(), "admin@example.com")
	auth := NewAuth(tokens, &revocationSet{err: errors.New("redis down")}, nil)

	handler := auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
