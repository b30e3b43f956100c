package shelfrank

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	healthuc "github.com/kailas-cloud/shelfrank/internal/usecase/health"
)

func TestNew_RequiredOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"nothing", nil},
		{"no recommender", []Option{WithCatalogDSN("x.db"), WithNLP("http://nlp")}},
		{"no nlp", []Option{WithCatalogDSN("x.db"), WithRecommender("http://rec")}},
		{"no catalog", []Option{WithRecommender("http://rec"), WithNLP("http://nlp")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(context.Background(), tc.opts...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGetPersonalizedFeed(t *testing.T) {
	var gotSubject string
	var gotLimit int
	c := &Client{feedSvc: &mockFeedUC{
		aggregateFn: func(_ context.Context, subjectID string, limit int) ([]domain.RankedCatalogItem, error) {
			gotSubject, gotLimit = subjectID, limit
			return []domain.RankedCatalogItem{{CatalogItem: domain.CatalogItem{ProductID: 5}, Score: 0.9}}, nil
		},
	}}

	items, err := c.GetPersonalizedFeed(context.Background(), "42", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSubject != "42" || gotLimit != 10 {
		t.Errorf("forwarded (%q, %d)", gotSubject, gotLimit)
	}
	if len(items) != 1 || items[0].ProductID != 5 {
		t.Errorf("items = %+v", items)
	}
}

func TestGetPersonalizedFeed_ErrorIsDistinctFromEmpty(t *testing.T) {
	c := &Client{feedSvc: &mockFeedUC{
		aggregateFn: func(context.Context, string, int) ([]domain.RankedCatalogItem, error) {
			return nil, domain.NewUpstreamError(domain.ServiceRecommender, "predict", domain.ErrUpstreamUnavailable)
		},
	}}

	items, err := c.GetPersonalizedFeed(context.Background(), "42", 10)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Service != ServiceRecommender {
		t.Errorf("expected UpstreamError for recommender, got %#v", err)
	}
	if items != nil {
		t.Errorf("items must be nil on error, got %v", items)
	}
}

func TestSearch_ForwardsAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(slog.New(slog.DiscardHandler), reg)
	if err != nil {
		t.Fatalf("observer: %v", err)
	}
	c := &Client{obs: obs, searchSvc: &mockSearchUC{
		searchFn: func(_ context.Context, q string) (domain.SearchResult, error) {
			if q != "agua" {
				t.Errorf("query = %q", q)
			}
			return domain.SearchResult{Query: q, Correction: domain.Correction{Applied: true, CorrectedQuery: "agua"}}, nil
		},
	}}

	res, err := c.Search(context.Background(), "agua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Correction.Applied {
		t.Error("correction must survive zero matches")
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", statusEmpty)); got != 1 {
		t.Errorf("search/empty = %v, want 1", got)
	}
}

func TestSearch_Error(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(context.Context, string) (domain.SearchResult, error) {
			return domain.SearchResult{Query: "partial"}, domain.ErrEmptyInput
		},
	}}

	res, err := c.Search(context.Background(), " ")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if res.Query != "" {
		t.Errorf("expected zero result on error, got %+v", res)
	}
}

func TestIsSearchAvailable(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{isAvailable: true}}
	if !c.IsSearchAvailable() {
		t.Error("expected available")
	}
}

func TestBrowseCatalog(t *testing.T) {
	c := &Client{catalog: &mockCatalog{
		listFn: func(_ context.Context, offset, limit int) ([]domain.CatalogItem, error) {
			if offset != 20 || limit != 10 {
				t.Errorf("page = (%d, %d)", offset, limit)
			}
			return []domain.CatalogItem{{ProductID: 21}}, nil
		},
	}}

	items, err := c.BrowseCatalog(context.Background(), 20, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %+v", items)
	}
}

func TestBrowseCatalog_InvalidPage(t *testing.T) {
	c := &Client{catalog: &mockCatalog{
		listFn: func(context.Context, int, int) ([]domain.CatalogItem, error) {
			t.Fatal("catalog must not be queried")
			return nil, nil
		},
	}}

	for _, page := range [][2]int{{-1, 10}, {0, 0}, {0, -5}} {
		if _, err := c.BrowseCatalog(context.Background(), page[0], page[1]); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("page %v: expected ErrInvalidArgument, got %v", page, err)
		}
	}
}

func TestHealth(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{Status: healthuc.Degraded}}}
	if got := c.Health(context.Background()); got.Status != HealthDegraded {
		t.Errorf("status = %q", got.Status)
	}
}

func TestReconcile(t *testing.T) {
	items := []Item{{ProductID: 1}, {ProductID: 2}, {ProductID: 3}}
	got := Reconcile(items, []int64{3, 1, 2})

	want := []int64{3, 1, 2}
	for i, id := range want {
		if got[i].ProductID != id {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if items[0].ProductID != 1 {
		t.Error("input must not be modified")
	}
}

func TestReconcileRanked_KeepsScores(t *testing.T) {
	items := []RankedItem{
		{CatalogItem: Item{ProductID: 1}, Score: 0.1},
		{CatalogItem: Item{ProductID: 2}, Score: 0.2},
	}
	got := ReconcileRanked(items, []int64{2})
	if got[0].ProductID != 2 || got[0].Score != 0.2 || got[1].Score != 0.1 {
		t.Errorf("got %+v", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	closed := 0
	c := &Client{closers: []func(){func() { closed++ }}}
	c.Close()
	c.Close()
	if closed != 1 {
		t.Errorf("closer ran %d times, want 1", closed)
	}
}
