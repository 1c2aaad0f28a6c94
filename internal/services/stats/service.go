// Package stats computes the dashboard summary.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/bengobox/church-admin/internal/database"
	"go.uber.org/zap"
)

const (
	cacheKey = "stats:summary"
	cacheTTL = 30 * time.Second
)

// Summary is the dashboard headline. ValorEstoque is in cents.
type Summary struct {
	TotalIgrejas  int64 `json:"totalIgrejas"`
	TotalProdutos int64 `json:"totalProdutos"`
	ValorEstoque  int64 `json:"valorEstoque"`
}

// Source computes a fresh summary.
type Source interface {
	Summary(ctx context.Context) (Summary, error)
}

// Cache stores encoded values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Service serves the summary through an optional cache. Cache failures fall
// back to the source.
type Service struct {
	source Source
	cache  Cache
	logger *zap.Logger
}

// New constructs a Service. cache may be nil.
func New(source Source, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// Summary returns the cached summary or computes it.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, cacheKey, &out)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		} else if hit {
			return out, nil
		}
	}

	out, err := s.source.Summary(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("compute stats: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, out, cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// Invalidate drops the cached summary so the next read recomputes it.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(context.WithoutCancel(ctx), cacheKey); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

// PostgresSource aggregates the summary in one query.
type PostgresSource struct {
	db database.Querier
}

// NewPostgresSource constructs a PostgresSource.
func NewPostgresSource(db database.Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

func (p *PostgresSource) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	err := p.db.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM igrejas),
			(SELECT count(*) FROM products),
			(SELECT COALESCE(sum(p.price * s.quantity), 0)::bigint
			 FROM stock s JOIN products p ON p.id = s.product_id)`,
	).Scan(&out.TotalIgrejas, &out.TotalProdutos, &out.ValorEstoque)
	if err != nil {
		return Summary{}, fmt.Errorf("query stats: %w", err)
	}
	return out, nil
}
