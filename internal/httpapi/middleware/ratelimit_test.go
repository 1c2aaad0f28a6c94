package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bengobox/church-admin/internal/httpapi/render"
	"github.com/redis/go-redis/v9"
)

func newLimitedHandler(t *testing.T, trusted []netip.Prefix, requests int) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client, "test", trusted, nil)
	h := limiter.Limit("login", requests, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)
	return h, mr
}

func send(h http.Handler, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	r.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		r.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRateLimiterIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	h, _ := newLimitedHandler(t, nil, 2)

	allowed := 0
	for i := 0; i < 10; i++ {
		rec := send(h, "198.51.100.7:40000", fmt.Sprintf("10.0.0.%d", i))
		switch rec.Code {
		case http.StatusOK:
			allowed++
		case http.StatusTooManyRequests:
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Fatalf("request %d: Retry-After = %q", i, got)
			}
			var body render.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != "rate_limited" {
				t.Fatalf("request %d: code = %q", i, body.Code)
			}
		default:
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	if allowed != 2 {
		t.Fatalf("allowed %d of 10 requests, want 2", allowed)
	}

	if rec := send(h, "198.51.100.8:40000", ""); rec.Code != http.StatusOK {
		t.Fatalf("other peer: status %d", rec.Code)
	}
}

func TestRateLimiterTrustedProxyUsesNearestUntrustedHop(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	h, _ := newLimitedHandler(t, trusted, 2)
	const proxy = "10.1.2.3:8080"

	for i := 0; i < 2; i++ {
		if rec := send(h, proxy, "203.0.113.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	// A client-supplied leading entry does not move the bucket.
	if rec := send(h, proxy, "192.0.2.99, 203.0.113.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("spoofed chain: status %d", rec.Code)
	}
	if rec := send(h, proxy, "203.0.113.2, 10.4.4.4"); rec.Code != http.StatusOK {
		t.Fatalf("second client: status %d", rec.Code)
	}
}

func TestRateLimiterWindowExpires(t *testing.T) {
	h, mr := newLimitedHandler(t, nil, 1)

	if rec := send(h, "198.51.100.7:1", ""); rec.Code != http.StatusOK {
		t.Fatalf("first: status %d", rec.Code)
	}
	if rec := send(h, "198.51.100.7:2", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: status %d", rec.Code)
	}
	if ttl := mr.TTL("test:ratelimit:login:198.51.100.7"); ttl != time.Minute {
		t.Fatalf("bucket ttl = %s", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if rec := send(h, "198.51.100.7:3", ""); rec.Code != http.StatusOK {
		t.Fatalf("after window: status %d", rec.Code)
	}
}

func TestRateLimiterRedisDownPassesThrough(t *testing.T) {
	h, mr := newLimitedHandler(t, nil, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		if rec := send(h, "198.51.100.7:1", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
}

func TestRateLimiterWithoutRedisPassesThrough(t *testing.T) {
	limited := NewRateLimiter(nil, "test", nil, nil).Limit("login", 1, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.1 ", "", "::ffff:172.16.0.1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"10.0.0.0/8", "192.168.1.1/32", "172.16.0.1/32"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("entry %d = %s, want %s", i, got[i], want[i])
		}
	}

	for _, bad := range []string{"10.0.0.0/33", "proxy.local"} {
		if _, err := ParseTrustedProxies([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
