// Package breaker wraps the upstream clients in circuit breakers so a dead
// service is failed fast between health checks.
package breaker

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	"github.com/kailas-cloud/shelfrank/internal/metrics"
)

// Settings tune a breaker. Zero values take the defaults below.
type Settings struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval resets the closed-state counts. Zero keeps counts until a trip.
	Interval time.Duration
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

const (
	defaultMaxRequests         = 1
	defaultTimeout             = 30 * time.Second
	defaultConsecutiveFailures = 5
)

func (s Settings) withDefaults() Settings {
	if s.MaxRequests == 0 {
		s.MaxRequests = defaultMaxRequests
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = defaultConsecutiveFailures
	}
	return s
}

func newBreaker[T any](svc domain.Service, s Settings, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	s = s.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	name := string(svc)
	metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state change",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		IsSuccessful: isSuccessful,
	})
}

// isSuccessful counts only upstream failures against the service. A caller
// that gave up says nothing about the upstream.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	return !domain.IsUpstreamFailure(err)
}

func execute[T any](cb *gobreaker.CircuitBreaker[T], svc domain.Service, op string, fn func() (T, error)) (T, error) {
	result, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, domain.NewUpstreamError(svc, op, errors.Join(domain.ErrUpstreamUnavailable, err))
	}
	return result, err //nolint:wrapcheck // inner errors are already wrapped
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
