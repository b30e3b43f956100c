package breaker

import (
	"context"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

type recommender interface {
	FetchRecommendations(ctx context.Context, subjectID string) ([]domain.RecommendationEntry, error)
	FetchPopular(ctx context.Context) ([]domain.RecommendationEntry, error)
}

// Recommender guards recommendation fetches with one breaker shared by the
// personalized and popular paths.
type Recommender struct {
	inner recommender
	cb    *gobreaker.CircuitBreaker[[]domain.RecommendationEntry]
}

// NewRecommender wraps inner.
func NewRecommender(inner recommender, s Settings, logger *zap.Logger) *Recommender {
	return &Recommender{
		inner: inner,
		cb:    newBreaker[[]domain.RecommendationEntry](domain.ServiceRecommender, s, logger),
	}
}

// FetchRecommendations calls through unless the breaker is open.
func (r *Recommender) FetchRecommendations(
	ctx context.Context, subjectID string,
) ([]domain.RecommendationEntry, error) {
	return execute(r.cb, domain.ServiceRecommender, "predict", func() ([]domain.RecommendationEntry, error) {
		return r.inner.FetchRecommendations(ctx, subjectID)
	})
}

// FetchPopular calls through unless the breaker is open.
func (r *Recommender) FetchPopular(ctx context.Context) ([]domain.RecommendationEntry, error) {
	return execute(r.cb, domain.ServiceRecommender, "popular", func() ([]domain.RecommendationEntry, error) {
		return r.inner.FetchPopular(ctx)
	})
}

// State returns the current breaker state.
func (r *Recommender) State() gobreaker.State { return r.cb.State() }
