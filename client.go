package shelfrank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/shelfrank/internal/db/redis"
	dbSqlite "github.com/kailas-cloud/shelfrank/internal/db/sqlite"
	"github.com/kailas-cloud/shelfrank/internal/domain"
	"github.com/kailas-cloud/shelfrank/internal/metrics"
	catalogrepo "github.com/kailas-cloud/shelfrank/internal/repository/catalog"
	"github.com/kailas-cloud/shelfrank/internal/repository/reccache"
	"github.com/kailas-cloud/shelfrank/internal/transport/breaker"
	"github.com/kailas-cloud/shelfrank/internal/transport/nlp"
	"github.com/kailas-cloud/shelfrank/internal/transport/recommender"
	"github.com/kailas-cloud/shelfrank/internal/usecase/availability"
	feeduc "github.com/kailas-cloud/shelfrank/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/shelfrank/internal/usecase/health"
	"github.com/kailas-cloud/shelfrank/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/shelfrank/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = 5 * time.Minute
)

// Internal interfaces for substitution in tests.
type feedUseCase interface {
	Aggregate(ctx context.Context, subjectID string, limit int) ([]domain.RankedCatalogItem, error)
}

type searchUseCase interface {
	Search(ctx context.Context, queryText string) (domain.SearchResult, error)
	IsAvailable() bool
}

type catalogBrowser interface {
	List(ctx context.Context, offset, limit int) ([]domain.CatalogItem, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the shelfrank entry point. It is safe for concurrent use.
type Client struct {
	feedSvc   feedUseCase
	searchSvc searchUseCase
	catalog   catalogBrowser
	healthSvc healthUseCase
	obs       *observer

	stopMonitor context.CancelFunc
	monitorDone chan struct{}
	closers     []func()
}

// New opens the catalog, starts the upstream health monitor and waits for
// its first round of probes. The provided context bounds that startup.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	switch {
	case cfg.catalogDSN == "":
		return nil, errors.New("shelfrank: catalog DSN required (use WithCatalogDSN)")
	case cfg.recommenderURL == "":
		return nil, errors.New("shelfrank: recommender URL required (use WithRecommender)")
	case cfg.nlpURL == "":
		return nil, errors.New("shelfrank: NLP URL required (use WithNLP)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := dbSqlite.NewStore(dbSqlite.Config{DSN: cfg.catalogDSN})
	if err != nil {
		return nil, fmt.Errorf("shelfrank: open catalog: %w", err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("shelfrank: catalog not ready: %w", err)
	}

	c := &Client{obs: obs, closers: []func(){func() { _ = store.Close() }}}
	if err := c.wire(ctx, cfg, store); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) wire(ctx context.Context, cfg *clientConfig, store *dbSqlite.Store) error {
	logger := zap.NewNop()
	catalog := catalogrepo.New(store)

	recClient := recommender.NewClient(&recommender.Config{
		BaseURL:     cfg.recommenderURL,
		Timeout:     cfg.timeout,
		AnonymousID: cfg.anonymousID,
		HTTPClient:  cfg.httpClient,
		Logger:      logger,
	})
	nlpClient := nlp.NewClient(&nlp.Config{
		BaseURL:             cfg.nlpURL,
		Timeout:             cfg.timeout,
		EnableSQLGeneration: cfg.sqlGeneration,
		HTTPClient:          cfg.httpClient,
		Logger:              logger,
	})

	var recs feeduc.Recommender = recClient
	if len(cfg.cacheAddrs) > 0 {
		cache, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.cacheAddrs, Password: cfg.cachePassword})
		if err != nil {
			return fmt.Errorf("shelfrank: create redis cache: %w", err)
		}
		c.closers = append(c.closers, cache.Close)
		ttl := cfg.cacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		recs = reccache.New(recClient, cache, ttl, metrics.RecommendationCacheTotal, logger)
	}

	var interpreter searchuc.Interpreter = nlpClient
	if cfg.breaker {
		s := breaker.Settings{ConsecutiveFailures: cfg.breakerFailures, Timeout: cfg.breakerOpen}
		recs = breaker.NewRecommender(recs, s, logger)
		interpreter = breaker.NewInterpreter(nlpClient, s, logger)
	}

	var monOpts []availability.Option
	if cfg.monitorInterval > 0 {
		monOpts = append(monOpts, availability.WithInterval(cfg.monitorInterval))
	}
	if cfg.logger != nil {
		monOpts = append(monOpts, availability.OnTransition(func(svc domain.Service, _, to domain.Availability) {
			cfg.logger.Info("upstream availability changed", "service", string(svc), "healthy", to.Healthy)
		}))
	}
	monitor := availability.New(map[domain.Service]availability.Checker{
		domain.ServiceRecommender: recClient,
		domain.ServiceNLP:         nlpClient,
	}, monOpts...)

	monCtx, stop := context.WithCancel(context.Background())
	c.stopMonitor = stop
	c.monitorDone = make(chan struct{})
	go func() {
		defer close(c.monitorDone)
		monitor.Run(monCtx)
	}()

	select {
	case <-monitor.Ready():
	case <-ctx.Done():
		return fmt.Errorf("shelfrank: waiting for upstream probes: %w", ctx.Err())
	}

	c.feedSvc = feeduc.New(recs, catalog, monitor, feeduc.WithLimits(cfg.defaultLimit, cfg.maxLimit))
	c.searchSvc = searchuc.New(interpreter, monitor, searchuc.WithCatalog(catalog))
	c.catalog = catalog
	c.healthSvc = healthuc.New(store, monitor)
	return nil
}

// Close stops the health monitor and releases the catalog and cache
// connections.
func (c *Client) Close() {
	if c.stopMonitor != nil {
		c.stopMonitor()
		<-c.monitorDone
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// GetPersonalizedFeed returns catalog items in the recommender's order for
// subjectID. An empty subjectID requests the anonymous feed. limit <= 0
// uses the default size; larger values are capped. An empty feed is a
// non-nil empty slice with a nil error.
func (c *Client) GetPersonalizedFeed(ctx context.Context, subjectID string, limit int) ([]RankedItem, error) {
	start := time.Now()
	items, err := c.feedSvc.Aggregate(ctx, subjectID, limit)
	c.obs.observe("feed", start, len(items), err)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Search interprets queryText and returns the matched products with any
// spelling correction the NLP service applied. A blank query returns
// ErrEmptyInput without a network call.
func (c *Client) Search(ctx context.Context, queryText string) (SearchResult, error) {
	start := time.Now()
	res, err := c.searchSvc.Search(ctx, queryText)
	c.obs.observe("search", start, len(res.Matches), err)
	if err != nil {
		return SearchResult{}, err
	}
	return res, nil
}

// IsSearchAvailable reports the last-known NLP availability. It never
// blocks on a probe.
func (c *Client) IsSearchAvailable() bool {
	return c.searchSvc.IsAvailable()
}

// BrowseCatalog lists catalog rows by product id without ranking. It is
// the fallback when the recommender is unavailable.
func (c *Client) BrowseCatalog(ctx context.Context, offset, limit int) ([]Item, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: offset must be >= 0 and limit > 0", ErrInvalidArgument)
	}
	start := time.Now()
	items, err := c.catalog.List(ctx, offset, limit)
	c.obs.observe("browse", start, len(items), err)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Health reports catalog reachability and the last-known upstream state.
func (c *Client) Health(ctx context.Context) HealthReport {
	return c.healthSvc.Check(ctx)
}

// Reconcile returns a copy of items sorted by order. Items whose id is not
// in order keep their relative position after the ranked ones. The input
// is never modified.
func Reconcile(items []Item, order []int64) []Item {
	return ranking.Reconcile(items, order)
}

// ReconcileRanked is Reconcile for scored items. Scores are kept.
func ReconcileRanked(items []RankedItem, order []int64) []RankedItem {
	return ranking.ReconcileRanked(items, order)
}
