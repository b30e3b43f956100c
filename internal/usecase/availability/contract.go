package availability

import (
	"context"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// Checker probes one external service. A nil error means healthy.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// TransitionFunc observes a flip of Healthy for one service.
type TransitionFunc func(svc domain.Service, from, to domain.Availability)
