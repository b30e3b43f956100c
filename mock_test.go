package shelfrank

import (
	"context"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	healthuc "github.com/kailas-cloud/shelfrank/internal/usecase/health"
)

// --- feedUseCase mock ---

type mockFeedUC struct {
	aggregateFn func(ctx context.Context, subjectID string, limit int) ([]domain.RankedCatalogItem, error)
}

func (m *mockFeedUC) Aggregate(ctx context.Context, subjectID string, limit int) ([]domain.RankedCatalogItem, error) {
	return m.aggregateFn(ctx, subjectID, limit)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn    func(ctx context.Context, queryText string) (domain.SearchResult, error)
	isAvailable bool
}

func (m *mockSearchUC) Search(ctx context.Context, queryText string) (domain.SearchResult, error) {
	return m.searchFn(ctx, queryText)
}

func (m *mockSearchUC) IsAvailable() bool { return m.isAvailable }

// --- catalogBrowser mock ---

type mockCatalog struct {
	listFn func(ctx context.Context, offset, limit int) ([]domain.CatalogItem, error)
}

func (m *mockCatalog) List(ctx context.Context, offset, limit int) ([]domain.CatalogItem, error) {
	return m.listFn(ctx, offset, limit)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }
