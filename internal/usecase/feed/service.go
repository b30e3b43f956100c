// Package feed builds personalized and popular product feeds by joining
// recommender output with the catalog.
package feed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

const (
	// DefaultLimit applies when the caller passes a non-positive limit.
	DefaultLimit = 20
	// MaxLimit caps any requested limit.
	MaxLimit = 100
)

// Option configures a Service.
type Option func(*Service)

// WithLimits overrides the default and max feed sizes.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
		if s.defaultLimit > s.maxLimit {
			s.defaultLimit = s.maxLimit
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service aggregates feeds.
type Service struct {
	recs         Recommender
	catalog      CatalogReader
	gate         AvailabilityGate
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// New creates a feed service.
func New(recs Recommender, catalog CatalogReader, gate AvailabilityGate, opts ...Option) *Service {
	s := &Service{
		recs:         recs,
		catalog:      catalog,
		gate:         gate,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		logger:       zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Limit normalizes a requested feed size.
func (s *Service) Limit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	default:
		return limit
	}
}

// Aggregate returns up to limit catalog items in recommender order for
// subjectID, or the popular feed when subjectID is empty. Ids without a
// catalog row are dropped. An empty feed is not an error.
func (s *Service) Aggregate(ctx context.Context, subjectID string, limit int) ([]domain.RankedCatalogItem, error) {
	limit = s.Limit(limit)

	if !s.gate.IsAvailable(domain.ServiceRecommender) {
		s.gate.ForceCheck(domain.ServiceRecommender)
		return nil, domain.NewUpstreamError(domain.ServiceRecommender, "predict",
			fmt.Errorf("%w: marked unavailable by health monitor", domain.ErrUpstreamUnavailable))
	}

	entries, err := s.fetch(ctx, subjectID)
	if err != nil {
		if domain.IsUpstreamFailure(err) && !errors.Is(err, context.Canceled) {
			s.gate.ReportFailure(domain.ServiceRecommender)
		}
		return nil, fmt.Errorf("fetch recommendations: %w", err)
	}
	if len(entries) == 0 {
		return []domain.RankedCatalogItem{}, nil
	}

	rows, err := s.catalog.GetByIDs(ctx, domain.ProductIDs(entries))
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	out := join(entries, domain.IndexCatalog(rows))
	if dropped := len(domain.ProductIDs(entries)) - len(out); dropped > 0 {
		s.logger.Debug("Recommended ids missing from catalog",
			zap.Int("recommended", len(entries)),
			zap.Int("dropped", dropped),
		)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) fetch(ctx context.Context, subjectID string) ([]domain.RecommendationEntry, error) {
	if subjectID == "" {
		return s.recs.FetchPopular(ctx) //nolint:wrapcheck // wrapped by caller
	}
	return s.recs.FetchRecommendations(ctx, subjectID) //nolint:wrapcheck // wrapped by caller
}

// join walks entries in received order and keeps the first occurrence of
// each id that has a catalog row.
func join(entries []domain.RecommendationEntry, idx domain.CatalogIndex) []domain.RankedCatalogItem {
	out := make([]domain.RankedCatalogItem, 0, len(entries))
	seen := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ProductID]; dup {
			continue
		}
		seen[e.ProductID] = struct{}{}

		item, ok := idx[e.ProductID]
		if !ok {
			continue
		}
		out = append(out, domain.RankedCatalogItem{CatalogItem: item, Score: e.Score})
	}
	return out
}
