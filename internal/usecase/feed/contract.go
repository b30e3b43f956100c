package feed

import (
	"context"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// Recommender returns upstream-ranked product ids.
type Recommender interface {
	FetchRecommendations(ctx context.Context, subjectID string) ([]domain.RecommendationEntry, error)
	FetchPopular(ctx context.Context) ([]domain.RecommendationEntry, error)
}

// CatalogReader batch-loads catalog rows. Missing ids are simply absent.
type CatalogReader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.CatalogItem, error)
}

// AvailabilityGate exposes the health monitor to the aggregator.
type AvailabilityGate interface {
	IsAvailable(svc domain.Service) bool
	ForceCheck(svc domain.Service)
	ReportFailure(svc domain.Service)
}
