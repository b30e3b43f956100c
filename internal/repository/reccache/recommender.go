package reccache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/db"
	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// DefaultKeyPrefix namespaces cache keys.
const DefaultKeyPrefix = "shelfrank:recs:"

// store is the consumer interface for the recommendation cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// recommender is the decorated upstream.
type recommender interface {
	FetchRecommendations(ctx context.Context, subjectID string) ([]domain.RecommendationEntry, error)
	FetchPopular(ctx context.Context) ([]domain.RecommendationEntry, error)
}

// CachedRecommender caches successful recommendation lists for a short TTL.
// Failures are never cached, so an upstream outage still surfaces once the
// cached entry expires.
type CachedRecommender struct {
	inner      recommender
	store      store
	ttl        time.Duration
	prefix     string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly; may be nil.
func New(
	inner recommender,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedRecommender {
	return &CachedRecommender{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		prefix:     DefaultKeyPrefix,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// FetchRecommendations returns a cached list or calls the inner recommender.
func (c *CachedRecommender) FetchRecommendations(
	ctx context.Context, subjectID string,
) ([]domain.RecommendationEntry, error) {
	return c.fetch(ctx, c.prefix+"user:"+url.PathEscape(subjectID), func() ([]domain.RecommendationEntry, error) {
		return c.inner.FetchRecommendations(ctx, subjectID)
	})
}

// FetchPopular returns a cached guest list or calls the inner recommender.
func (c *CachedRecommender) FetchPopular(ctx context.Context) ([]domain.RecommendationEntry, error) {
	return c.fetch(ctx, c.prefix+"popular", func() ([]domain.RecommendationEntry, error) {
		return c.inner.FetchPopular(ctx)
	})
}

func (c *CachedRecommender) fetch(
	ctx context.Context, key string, load func() ([]domain.RecommendationEntry, error),
) ([]domain.RecommendationEntry, error) {
	if entries, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		domain.TraceFromContext(ctx).MarkCacheHit()
		return entries, nil
	}
	c.incCache("miss")

	entries, err := load()
	if err != nil {
		return nil, fmt.Errorf("load recommendations: %w", err)
	}

	c.putToCache(ctx, key, entries)
	return entries, nil
}

func (c *CachedRecommender) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedRecommender) getFromCache(ctx context.Context, key string) ([]domain.RecommendationEntry, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached recommendations", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	entries := []domain.RecommendationEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("Failed to parse cached recommendations, evicting", zap.String("key", key), zap.Error(err))
		if err := c.store.Del(ctx, key); err != nil {
			c.logger.Warn("Failed to evict cached recommendations", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return entries, true
}

func (c *CachedRecommender) putToCache(ctx context.Context, key string, entries []domain.RecommendationEntry) {
	if entries == nil {
		entries = []domain.RecommendationEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("Failed to encode recommendations", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache recommendations", zap.String("key", key), zap.Error(err))
	}
}
