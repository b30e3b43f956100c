package shelfrank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// Operation status labels.
const (
	statusOK          = "ok"
	statusEmpty       = "empty"
	statusUnavailable = "unavailable"
	statusCanceled    = "canceled"
	statusError       = "error"
)

// clientMetrics holds prometheus metrics registered by the client.
type clientMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	results    *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfrank",
			Subsystem: "client",
			Name:      "operations_total",
			Help:      "Client operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shelfrank",
			Subsystem: "client",
			Name:      "operation_duration_seconds",
			Help:      "Client operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shelfrank",
			Subsystem: "client",
			Name:      "operation_results",
			Help:      "Items returned per successful operation.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.results); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one, so two
// clients can share a registerer.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("shelfrank: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("shelfrank: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts client operations. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// observe records one finished operation. n is the number of items
// returned and is ignored on error.
func (o *observer) observe(op string, start time.Time, n int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := statusOf(n, err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		if err == nil {
			o.metrics.results.WithLabelValues(op).Observe(float64(n))
		}
	}

	if o.logger == nil {
		return
	}
	switch status {
	case statusError, statusUnavailable:
		o.logger.Warn("operation failed",
			"op", op,
			"status", status,
			"duration", dur,
			"error", err,
		)
	default:
		o.logger.Debug("operation completed",
			"op", op,
			"status", status,
			"duration", dur,
			"items", n,
		)
	}
}

func statusOf(n int, err error) string {
	switch {
	case err == nil && n == 0:
		return statusEmpty
	case err == nil:
		return statusOK
	case errors.Is(err, context.Canceled):
		return statusCanceled
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return statusUnavailable
	default:
		return statusError
	}
}
