package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/config"
	dbRedis "github.com/kailas-cloud/shelfrank/internal/db/redis"
	dbSqlite "github.com/kailas-cloud/shelfrank/internal/db/sqlite"
	"github.com/kailas-cloud/shelfrank/internal/domain"
	logpkg "github.com/kailas-cloud/shelfrank/internal/logger"
	"github.com/kailas-cloud/shelfrank/internal/metrics"
	catalogrepo "github.com/kailas-cloud/shelfrank/internal/repository/catalog"
	"github.com/kailas-cloud/shelfrank/internal/repository/reccache"
	"github.com/kailas-cloud/shelfrank/internal/transport/breaker"
	chiTransport "github.com/kailas-cloud/shelfrank/internal/transport/chi"
	"github.com/kailas-cloud/shelfrank/internal/transport/nlp"
	"github.com/kailas-cloud/shelfrank/internal/transport/recommender"
	"github.com/kailas-cloud/shelfrank/internal/usecase/availability"
	feeduc "github.com/kailas-cloud/shelfrank/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/shelfrank/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shelfrank/internal/usecase/search"
	"github.com/kailas-cloud/shelfrank/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shelfrank API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("recommender_url", cfg.Recommender.BaseURL),
		zap.String("nlp_url", cfg.NLP.BaseURL),
		zap.Bool("cache_enabled", cfg.Cache.Enabled()),
		zap.Bool("breaker_enabled", cfg.Breaker.Enabled),
	)

	// Register upstream metrics explicitly (no init())
	metrics.RegisterUpstreamMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog store
	store, err := dbSqlite.NewStore(dbSqlite.Config{
		DSN:          cfg.Catalog.DSN,
		MaxOpenConns: cfg.Catalog.MaxOpenConns,
	})
	if err != nil {
		logger.Fatal("Failed to open catalog store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	if err := store.WaitForReady(ctx, seconds(cfg.Catalog.ReadinessTimeout)); err != nil {
		logger.Fatal("Catalog store not ready", zap.Error(err))
	}
	logger.Info("Connected to catalog store")

	catalog := catalogrepo.New(store).WithTimeout(seconds(cfg.Catalog.QueryTimeoutSec))

	// Upstream clients
	recClient := recommender.NewClient(&recommender.Config{
		BaseURL:     cfg.Recommender.BaseURL,
		Timeout:     seconds(cfg.Recommender.TimeoutSec),
		AnonymousID: cfg.Recommender.AnonymousID,
		Logger:      logger,
	})
	nlpClient := nlp.NewClient(&nlp.Config{
		BaseURL:             cfg.NLP.BaseURL,
		Timeout:             seconds(cfg.NLP.TimeoutSec),
		MaxRecommendations:  cfg.NLP.MaxRecommendations,
		EnableSQLGeneration: cfg.NLP.EnableSQLGeneration,
		Logger:              logger,
	})

	recs, closeCache := buildRecommender(recClient, cfg, logger)
	defer closeCache()

	var interpreter searchuc.Interpreter = nlpClient
	if cfg.Breaker.Enabled {
		interpreter = breaker.NewInterpreter(nlpClient, breakerSettings(cfg.Breaker), logger)
	}

	// Availability monitor probes the raw clients, not the breaker-wrapped ones.
	monitor := availability.New(
		map[domain.Service]availability.Checker{
			domain.ServiceRecommender: recClient,
			domain.ServiceNLP:         nlpClient,
		},
		availability.WithInterval(seconds(cfg.Monitor.IntervalSec)),
		availability.WithCheckTimeout(seconds(cfg.Monitor.CheckTimeoutSec)),
		availability.WithMinRecheck(seconds(cfg.Monitor.MinRecheckSec)),
		availability.WithLogger(logger),
	)
	go monitor.Run(ctx)

	// Use case services
	feedSvc := feeduc.New(recs, catalog, monitor,
		feeduc.WithLimits(cfg.Feed.DefaultLimit, cfg.Feed.MaxLimit),
		feeduc.WithLogger(logger),
	)
	searchSvc := searchuc.New(interpreter, monitor,
		searchuc.WithCatalog(catalog),
		searchuc.WithLogger(logger),
	)
	healthSvc := healthuc.New(store, monitor)

	server := chiTransport.NewServer(feedSvc, searchSvc, catalog, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: seconds(cfg.HTTP.WriteTimeoutSec),
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), seconds(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildRecommender assembles the decorator chain: client -> cache -> breaker.
// The returned func releases the cache connection.
func buildRecommender(
	client *recommender.Client,
	cfg config.Config,
	logger *zap.Logger,
) (feeduc.Recommender, func()) {
	var recs feeduc.Recommender = client
	closeCache := func() {}

	if cfg.Cache.Enabled() {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Warn("Recommendation cache disabled", zap.Error(err))
		} else {
			recs = reccache.New(client, cache, seconds(cfg.Cache.TTLSec), metrics.RecommendationCacheTotal, logger)
			closeCache = cache.Close
		}
	}

	if cfg.Breaker.Enabled {
		recs = breaker.NewRecommender(recs, breakerSettings(cfg.Breaker), logger)
	}

	return recs, closeCache
}

func breakerSettings(c config.BreakerConfig) breaker.Settings {
	return breaker.Settings{
		MaxRequests:         c.HalfOpenRequests,
		Timeout:             seconds(c.OpenTimeoutSec),
		ConsecutiveFailures: c.ConsecutiveFailures,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: upstream fan-out comes from the trace headers the handlers set.
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("upstream_calls", ww.Header().Get(chiTransport.HeaderUpstreamCalls)),
				zap.String("recommendation_cache", ww.Header().Get(chiTransport.HeaderRecommendationCache)),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
