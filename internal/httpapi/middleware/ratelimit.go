package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/bengobox/church-admin/internal/httpapi/render"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter applies fixed-window limits per client address backed by Redis.
// The address is the connection peer unless that peer is a trusted proxy, in
// which case the nearest untrusted X-Forwarded-For hop is used.
type RateLimiter struct {
	client    redis.Cmdable
	namespace string
	trusted   []netip.Prefix
	logger    *zap.Logger
}

// NewRateLimiter constructs a RateLimiter. A nil client disables limiting.
func NewRateLimiter(client redis.Cmdable, namespace string, trustedProxies []netip.Prefix, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{client: client, namespace: namespace, trusted: trustedProxies, logger: logger}
}

// ParseTrustedProxies accepts bare addresses and CIDR ranges.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Limit allows at most requests calls per window for each client address under
// the given bucket name. Redis failures let the request through.
func (l *RateLimiter) Limit(bucket string, requests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || l.client == nil || requests <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := fmt.Sprintf("%s:ratelimit:%s:%s", l.namespace, bucket, l.clientAddr(r))

			var (
				incr *redis.IntCmd
				ttl  *redis.DurationCmd
			)
			_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(ctx, key)
				ttl = pipe.PTTL(ctx, key)
				return nil
			})
			if err == nil && ttl.Val() < 0 {
				err = l.client.PExpire(ctx, key, window).Err()
			}
			if err != nil {
				l.logger.Warn("rate limit check failed", zap.String("bucket", bucket), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if incr.Val() > int64(requests) {
				retry := window
				if ttl.Val() > 0 {
					retry = ttl.Val()
				}
				secs := int((retry + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				render.Error(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}
	peer = peer.Unmap()
	if !l.isTrusted(peer) {
		return peer.String()
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		hop = hop.Unmap()
		if !l.isTrusted(hop) {
			return hop.String()
		}
	}
	return peer.String()
}

func (l *RateLimiter) isTrusted(addr netip.Addr) bool {
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
