package search

import (
	"context"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// Interpreter turns free text into an interpretation and product matches.
type Interpreter interface {
	Interpret(ctx context.Context, queryText string) (domain.SearchResult, error)
}

// AvailabilityGate exposes the health monitor to the orchestrator.
type AvailabilityGate interface {
	IsAvailable(svc domain.Service) bool
	ForceCheck(svc domain.Service)
	ReportFailure(svc domain.Service)
}

// CatalogReader loads authoritative rows for enrichment.
type CatalogReader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.CatalogItem, error)
}
