package breaker

import (
	"context"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

type interpreter interface {
	Interpret(ctx context.Context, queryText string) (domain.SearchResult, error)
}

// Interpreter guards NLP interpretation calls.
type Interpreter struct {
	inner interpreter
	cb    *gobreaker.CircuitBreaker[domain.SearchResult]
}

// NewInterpreter wraps inner.
func NewInterpreter(inner interpreter, s Settings, logger *zap.Logger) *Interpreter {
	return &Interpreter{
		inner: inner,
		cb:    newBreaker[domain.SearchResult](domain.ServiceNLP, s, logger),
	}
}

// Interpret calls through unless the breaker is open.
func (i *Interpreter) Interpret(ctx context.Context, queryText string) (domain.SearchResult, error) {
	return execute(i.cb, domain.ServiceNLP, "analyze", func() (domain.SearchResult, error) {
		return i.inner.Interpret(ctx, queryText)
	})
}

// State returns the current breaker state.
func (i *Interpreter) State() gobreaker.State { return i.cb.State() }
