package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bengobox/church-admin/internal/config"
)

type summary struct {
	TotalIgrejas int64 `json:"totalIgrejas"`
}

func TestJSONRoundTripAndDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	c := NewJSON(client, "church")
	ctx := context.Background()

	var got summary
	if hit, err := c.Get(ctx, "stats:summary", &got); err != nil || hit {
		t.Fatalf("expected miss, got hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, "stats:summary", summary{TotalIgrejas: 4}, 30*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("church:cache:stats:summary") {
		t.Fatalf("expected namespaced key, have %v", mr.Keys())
	}
	if ttl := mr.TTL("church:cache:stats:summary"); ttl != 30*time.Second {
		t.Fatalf("ttl = %s", ttl)
	}
	if hit, err := c.Get(ctx, "stats:summary", &got); err != nil || !hit || got.TotalIgrejas != 4 {
		t.Fatalf("expected hit with 4, got hit=%v err=%v value=%+v", hit, err, got)
	}

	if err := c.Delete(ctx, "stats:summary"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if hit, _ := c.Get(ctx, "stats:summary", &got); hit {
		t.Fatalf("expected miss after delete")
	}
}

func TestJSONGetRejectsCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := mr.Set("church:cache:stats:summary", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var got summary
	if _, err := NewJSON(client, "church").Get(context.Background(), "stats:summary", &got); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := New(context.Background(), config.RedisConfig{Addr: addr}); err == nil {
		t.Fatalf("expected ping error")
	}
}
