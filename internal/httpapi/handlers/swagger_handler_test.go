package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAPIDocumentsRoutes(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(openapiSpec, &doc); err != nil {
		t.Fatalf("embedded document is not JSON: %v", err)
	}

	want := map[string][]string{
		"/api/users/login":       {"post"},
		"/api/register":          {"post"},
		"/api/users/me":          {"get"},
		"/api/products":          {"get", "post"},
		"/api/products/{id}":     {"get", "put", "delete"},
		"/api/igrejas/{id}":      {"get", "put", "delete"},
		"/api/stock/{id}":        {"get", "put", "delete"},
		"/api/orders":            {"get", "post"},
		"/api/audit":             {"get"},
		"/api/stats":             {"get"},
		"/api/users/me/password": {"put"},
	}
	for path, methods := range want {
		ops, ok := doc.Paths[path]
		if !ok {
			t.Errorf("path %s missing", path)
			continue
		}
		for _, m := range methods {
			if _, ok := ops[m]; !ok {
				t.Errorf("%s %s missing", m, path)
			}
		}
	}
}

func TestOpenAPIJSONETag(t *testing.T) {
	rec := httptest.NewRecorder()
	OpenAPIJSON(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("ETag") == "" {
		t.Fatalf("first fetch: %d etag=%q", rec.Code, rec.Header().Get("ETag"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	req.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	rec = httptest.NewRecorder()
	OpenAPIJSON(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional fetch: %d", rec.Code)
	}
}
