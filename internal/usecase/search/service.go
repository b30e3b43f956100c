// Package search runs free-text product search through the NLP service.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// Option configures a Service.
type Option func(*Service)

// WithCatalog overlays matched products with their catalog rows.
func WithCatalog(c CatalogReader) Option {
	return func(s *Service) { s.catalog = c }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service orchestrates NLP search.
type Service struct {
	nlp     Interpreter
	gate    AvailabilityGate
	catalog CatalogReader
	logger  *zap.Logger
}

// New creates a search service.
func New(nlp Interpreter, gate AvailabilityGate, opts ...Option) *Service {
	s := &Service{nlp: nlp, gate: gate, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IsAvailable reports the last-known NLP availability.
func (s *Service) IsAvailable() bool {
	return s.gate.IsAvailable(domain.ServiceNLP)
}

// Search interprets queryText. Blank input fails with ErrEmptyInput before
// any network call. Correction metadata is returned even with zero matches.
func (s *Service) Search(ctx context.Context, queryText string) (domain.SearchResult, error) {
	q := strings.TrimSpace(queryText)
	if q == "" {
		return domain.SearchResult{}, fmt.Errorf("%w: query is blank", domain.ErrEmptyInput)
	}

	if !s.gate.IsAvailable(domain.ServiceNLP) {
		s.gate.ForceCheck(domain.ServiceNLP)
		return domain.SearchResult{}, domain.NewUpstreamError(domain.ServiceNLP, "analyze",
			fmt.Errorf("%w: marked unavailable by health monitor", domain.ErrUpstreamUnavailable))
	}

	res, err := s.nlp.Interpret(ctx, q)
	if err != nil {
		if domain.IsUpstreamFailure(err) && !errors.Is(err, context.Canceled) {
			s.gate.ReportFailure(domain.ServiceNLP)
		}
		return domain.SearchResult{}, fmt.Errorf("interpret query: %w", err)
	}
	if res.Query == "" {
		res.Query = q
	}

	if s.catalog != nil && len(res.Matches) > 0 {
		if err := s.enrich(ctx, &res); err != nil {
			return domain.SearchResult{}, err
		}
	}
	return res, nil
}

// enrich replaces each match's product fields with the catalog row, keeping
// the NLP score and reasons. Matches without a row stay as mapped.
func (s *Service) enrich(ctx context.Context, res *domain.SearchResult) error {
	ids := make([]int64, 0, len(res.Matches))
	for _, m := range res.Matches {
		ids = append(ids, m.ProductID)
	}

	rows, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("enrich matches: %w", err)
	}
	idx := domain.IndexCatalog(rows)

	missing := 0
	for i := range res.Matches {
		row, ok := idx[res.Matches[i].ProductID]
		if !ok {
			missing++
			continue
		}
		res.Matches[i].CatalogItem = row
	}
	if missing > 0 {
		s.logger.Debug("Search matches missing from catalog", zap.Int("missing", missing))
	}
	return nil
}
