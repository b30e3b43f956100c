// Package chi exposes the feed, search and catalog operations over HTTP.
package chi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	logpkg "github.com/kailas-cloud/shelfrank/internal/logger"
	healthuc "github.com/kailas-cloud/shelfrank/internal/usecase/health"
	"github.com/kailas-cloud/shelfrank/internal/usecase/ranking"
)

const (
	defaultCatalogPage = 20
	maxCatalogPage     = 100
	maxBodyBytes       = 1 << 20
)

// Response headers describing what a request did upstream.
const (
	HeaderUpstreamCalls       = "X-Upstream-Calls"
	HeaderRecommendationCache = "X-Recommendation-Cache"
)

// FeedService builds product feeds.
type FeedService interface {
	Aggregate(ctx context.Context, subjectID string, limit int) ([]domain.RankedCatalogItem, error)
	Limit(limit int) int
}

// SearchService runs NLP search.
type SearchService interface {
	Search(ctx context.Context, queryText string) (domain.SearchResult, error)
	IsAvailable() bool
}

// CatalogBrowser lists the catalog without ranking.
type CatalogBrowser interface {
	List(ctx context.Context, offset, limit int) ([]domain.CatalogItem, error)
}

// HealthChecker reports readiness.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	feed          FeedService
	search        SearchService
	catalog       CatalogBrowser
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	feed FeedService,
	search SearchService,
	catalog CatalogBrowser,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		feed:    feed,
		search:  search,
		catalog: catalog,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, codeCatalogUnavailable),
		sentinelHandler(domain.ErrUpstreamMalformed, http.StatusBadGateway, codeUpstreamMalformed),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, codeUpstreamUnavailable),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/feed", s.GetFeed)
		r.Get("/search", s.SearchQuery)
		r.Post("/search", s.SearchBody)
		r.Get("/search/availability", s.SearchAvailability)
		r.Post("/rerank", s.Rerank)
		r.Get("/catalog", s.BrowseCatalog)
	})
}

// GetFeed handles GET /api/v1/feed?user_id=&limit=.
func (s *Server) GetFeed(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	subjectID := strings.TrimSpace(r.URL.Query().Get("user_id"))

	ctx, trace := domain.NewContextWithTrace(r.Context())
	items, err := s.feed.Aggregate(ctx, subjectID, limit)
	setTraceHeaders(w, trace, true)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, feedResponse{
		Items:        rankedToDTO(items),
		Limit:        s.feed.Limit(limit),
		Total:        len(items),
		Personalized: subjectID != "",
	})
}

// SearchQuery handles GET /api/v1/search?q=.
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, r.URL.Query().Get("q"))
}

// SearchBody handles POST /api/v1/search.
func (s *Server) SearchBody(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.runSearch(w, r, req.Query)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query string) {
	ctx, trace := domain.NewContextWithTrace(r.Context())
	res, err := s.search.Search(ctx, query)
	setTraceHeaders(w, trace, false)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToDTO(res))
}

// SearchAvailability handles GET /api/v1/search/availability.
func (s *Server) SearchAvailability(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, availabilityResponse{Available: s.search.IsAvailable()})
}

// Rerank handles POST /api/v1/rerank.
func (s *Server) Rerank(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if !decodeBody(w, r, &req) {
		return
	}
	items := make([]domain.CatalogItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = it.toDomain()
	}
	writeJSON(w, http.StatusOK, itemsResponse{Items: catalogToDTO(ranking.Reconcile(items, req.Order))})
}

// BrowseCatalog handles GET /api/v1/catalog?offset=&limit=.
func (s *Server) BrowseCatalog(w http.ResponseWriter, r *http.Request) {
	offset, ok := intParam(w, r, "offset")
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	if offset < 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "offset must not be negative")
		return
	}
	switch {
	case limit <= 0:
		limit = defaultCatalogPage
	case limit > maxCatalogPage:
		limit = maxCatalogPage
	}

	items, err := s.catalog.List(r.Context(), offset, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogPageResponse{
		Items:  catalogToDTO(items),
		Offset: offset,
		Limit:  limit,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	services := make(map[string]serviceDTO, len(report.Services))
	for svc, st := range report.Services {
		dto := serviceDTO{Healthy: st.Healthy}
		if st.Checked() {
			t := st.LastCheckedAt.UTC()
			dto.LastCheckedAt = &t
		}
		services[string(svc)] = dto
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Services: services,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setTraceHeaders(w http.ResponseWriter, trace *domain.CallTrace, cache bool) {
	if trace == nil {
		return
	}
	w.Header().Set(HeaderUpstreamCalls, strconv.Itoa(trace.UpstreamCalls))
	if cache {
		v := "miss"
		if trace.CacheHit {
			v = "hit"
		}
		w.Header().Set(HeaderRecommendationCache, v)
	}
}

// intParam reads an optional integer query parameter. Writes a 400 and
// returns false when the value is present but not an integer.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyInput,
		domain.ErrInvalidArgument,
		domain.ErrCatalogUnavailable,
		domain.ErrUpstreamMalformed,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			var ue *domain.UpstreamError
			if errors.As(err, &ue) {
				return string(ue.Service) + ": " + s.Error()
			}
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))

	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
