package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream and availability Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrank",
			Name:      "upstream_requests_total",
			Help:      "Total number of requests to external services",
		},
		[]string{"service", "op", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelfrank",
			Name:      "upstream_request_duration_seconds",
			Help:      "External service request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "op"},
	)

	ServiceAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shelfrank",
			Name:      "service_available",
			Help:      "Last-known availability of an external service (1 = available)",
		},
		[]string{"service"},
	)

	AvailabilityTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrank",
			Name:      "availability_transitions_total",
			Help:      "Availability state flips per service",
		},
		[]string{"service", "to"},
	)

	RecommendationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelfrank",
			Name:      "recommendation_cache_total",
			Help:      "Recommendation cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shelfrank",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 = closed, 1 = half-open, 2 = open)",
		},
		[]string{"service"},
	)
)

var upstreamMetricsRegistered bool

// RegisterUpstreamMetrics registers upstream metrics. Must be called once from main.
func RegisterUpstreamMetrics() {
	if upstreamMetricsRegistered {
		return
	}
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(ServiceAvailable)
	prometheus.MustRegister(AvailabilityTransitionsTotal)
	prometheus.MustRegister(RecommendationCacheTotal)
	prometheus.MustRegister(BreakerState)
	upstreamMetricsRegistered = true
}

// ObserveUpstream records one external call outcome.
func ObserveUpstream(service, op, status string, seconds float64) {
	UpstreamRequestsTotal.WithLabelValues(service, op, status).Inc()
	UpstreamRequestDuration.WithLabelValues(service, op).Observe(seconds)
}
