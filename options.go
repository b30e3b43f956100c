package shelfrank

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogDSN string

	recommenderURL string
	nlpURL         string
	anonymousID    string
	httpClient     *http.Client
	timeout        time.Duration
	sqlGeneration  bool

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	breaker         bool
	breakerFailures uint32
	breakerOpen     time.Duration

	monitorInterval time.Duration
	defaultLimit    int
	maxLimit        int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCatalogDSN sets the SQLite DSN of the product catalog. Required.
func WithCatalogDSN(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogDSN = dsn
	})
}

// WithRecommender sets the base URL of the personalization service. Required.
func WithRecommender(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.recommenderURL = baseURL
	})
}

// WithNLP sets the base URL of the query interpretation service. Required.
func WithNLP(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.nlpURL = baseURL
	})
}

// WithAnonymousID overrides the subject id sent for guest feeds.
// Default: "anonymous".
func WithAnonymousID(id string) Option {
	return optionFunc(func(c *clientConfig) {
		c.anonymousID = id
	})
}

// WithHTTPClient sets the HTTP client used for both upstream services.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithUpstreamTimeout bounds every upstream call. Default: 5s.
func WithUpstreamTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithSQLGeneration asks the NLP service to also generate SQL for each query.
func WithSQLGeneration() Option {
	return optionFunc(func(c *clientConfig) {
		c.sqlGeneration = true
	})
}

// WithRedisCache caches recommendation lists in Redis for ttl.
// Failures are never cached.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithCircuitBreaker wraps both upstream clients in a circuit breaker that
// opens after failures consecutive upstream failures and stays open for
// openTimeout. Zero values keep the defaults (5 failures, 30s).
func WithCircuitBreaker(failures uint32, openTimeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.breaker = true
		c.breakerFailures = failures
		c.breakerOpen = openTimeout
	})
}

// WithMonitorInterval sets how often upstream health is probed. Default: 30s.
func WithMonitorInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.monitorInterval = d
	})
}

// WithFeedLimits sets the default and maximum feed sizes. Defaults: 20 and 100.
func WithFeedLimits(defaultLimit, maxLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
