// Package availability tracks the last-known reachability of the external
// services and lets callers read it without blocking.
package availability

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	"github.com/kailas-cloud/shelfrank/internal/metrics"
)

const (
	// DefaultInterval is the time between scheduled checks.
	DefaultInterval = 30 * time.Second
	// DefaultCheckTimeout bounds one health probe.
	DefaultCheckTimeout = 3 * time.Second
	// DefaultMinRecheck is the minimum spacing between probes of one
	// service requested through ForceCheck.
	DefaultMinRecheck = 5 * time.Second
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval overrides the scheduled check interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithCheckTimeout overrides the per-probe timeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.checkTimeout = d
		}
	}
}

// WithMinRecheck overrides the minimum spacing between forced probes of a
// service. Zero probes on every request.
func WithMinRecheck(d time.Duration) Option {
	return func(m *Monitor) {
		if d >= 0 {
			m.minRecheck = d
		}
	}
}

// WithLogger sets the logger used for transitions.
func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// OnTransition registers fn to run after every flip.
func OnTransition(fn TransitionFunc) Option {
	return func(m *Monitor) { m.hooks = append(m.hooks, fn) }
}

type tracked struct {
	checker Checker
	state   atomic.Pointer[domain.Availability]
	pending atomic.Bool
}

// Monitor owns the availability snapshots. Run is the only writer; reads
// are lock-free and never wait on a probe.
type Monitor struct {
	services     map[domain.Service]*tracked
	order        []domain.Service
	interval     time.Duration
	checkTimeout time.Duration
	minRecheck   time.Duration
	logger       *zap.Logger
	hooks        []TransitionFunc
	now          func() time.Time
	wake         chan struct{}
	ready        chan struct{}
	readyOnce    sync.Once
}

// New creates a Monitor. Every service starts unavailable and unchecked.
func New(checkers map[domain.Service]Checker, opts ...Option) *Monitor {
	m := &Monitor{
		services:     make(map[domain.Service]*tracked, len(checkers)),
		interval:     DefaultInterval,
		checkTimeout: DefaultCheckTimeout,
		minRecheck:   DefaultMinRecheck,
		logger:       zap.NewNop(),
		now:          time.Now,
		wake:         make(chan struct{}, 1),
		ready:        make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}

	for svc, c := range checkers {
		t := &tracked{checker: c}
		t.state.Store(&domain.Availability{})
		m.services[svc] = t
		m.order = append(m.order, svc)
		metrics.ServiceAvailable.WithLabelValues(string(svc)).Set(0)
	}
	sort.Slice(m.order, func(i, j int) bool { return m.order[i] < m.order[j] })
	return m
}

// IsAvailable reports the last-known health of svc. Unknown services are
// unavailable.
func (m *Monitor) IsAvailable(svc domain.Service) bool {
	return m.State(svc).Healthy
}

// State returns the last published snapshot for svc.
func (m *Monitor) State(svc domain.Service) domain.Availability {
	t, ok := m.services[svc]
	if !ok {
		return domain.Availability{}
	}
	return *t.state.Load()
}

// Snapshot returns the state of every tracked service.
func (m *Monitor) Snapshot() map[domain.Service]domain.Availability {
	out := make(map[domain.Service]domain.Availability, len(m.services))
	for svc, t := range m.services {
		out[svc] = *t.state.Load()
	}
	return out
}

// Ready is closed once Run has completed its first round of checks.
func (m *Monitor) Ready() <-chan struct{} { return m.ready }

// ForceCheck asks Run to probe svc soon. Never blocks; repeated requests
// before the probe runs collapse into one. A service probed less than the
// minimum recheck spacing ago is probed once that spacing has elapsed.
func (m *Monitor) ForceCheck(svc domain.Service) {
	t, ok := m.services[svc]
	if !ok {
		return
	}
	t.pending.Store(true)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// ReportFailure records that a live call to svc failed and requests a
// recheck. The published state changes only through a probe.
func (m *Monitor) ReportFailure(svc domain.Service) {
	m.logger.Debug("Upstream failure reported", zap.String("service", string(svc)))
	m.ForceCheck(svc)
}

// Run probes every service immediately, then on each interval and on
// demand, until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.checkAll(ctx)
	m.readyOnce.Do(func() { close(m.ready) })

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Deferred rechecks share one timer, armed for the earliest due service.
	var retry *time.Timer
	var retryC <-chan time.Time
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()

	for {
		var wait time.Duration
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAll(ctx)
		case <-m.wake:
			wait = m.checkPending(ctx)
		case <-retryC:
			retryC = nil
			wait = m.checkPending(ctx)
		}
		if wait > 0 && retryC == nil {
			retry = time.NewTimer(wait)
			retryC = retry.C
		}
	}
}

func (m *Monitor) checkAll(ctx context.Context) {
	for _, svc := range m.order {
		m.services[svc].pending.Store(false)
		m.check(ctx, svc)
	}
}

// checkPending probes the pending services that are due and returns how
// long until the earliest deferred one is, or 0 if none is deferred.
func (m *Monitor) checkPending(ctx context.Context) time.Duration {
	var next time.Duration
	for _, svc := range m.order {
		t := m.services[svc]
		if !t.pending.Load() {
			continue
		}
		if wait := m.untilDue(t); wait > 0 {
			if next == 0 || wait < next {
				next = wait
			}
			continue
		}
		if t.pending.CompareAndSwap(true, false) {
			m.check(ctx, svc)
		}
	}
	return next
}

// untilDue returns how long t must wait before a forced probe.
func (m *Monitor) untilDue(t *tracked) time.Duration {
	last := t.state.Load().LastCheckedAt
	if m.minRecheck <= 0 || last.IsZero() {
		return 0
	}
	return m.minRecheck - m.now().Sub(last)
}

func (m *Monitor) check(ctx context.Context, svc domain.Service) {
	t := m.services[svc]

	cctx, cancel := context.WithTimeout(ctx, m.checkTimeout)
	err := t.checker.HealthCheck(cctx)
	cancel()
	if ctx.Err() != nil {
		// Shutting down: keep the last snapshot.
		return
	}

	next := &domain.Availability{Healthy: err == nil, LastCheckedAt: m.now()}
	prev := t.state.Swap(next)

	if err != nil {
		m.logger.Debug("Health check failed", zap.String("service", string(svc)), zap.Error(err))
	}
	if prev.Healthy == next.Healthy {
		return
	}

	m.logger.Info("Service availability changed",
		zap.String("service", string(svc)),
		zap.Bool("healthy", next.Healthy),
		zap.Error(err),
	)
	metrics.ServiceAvailable.WithLabelValues(string(svc)).Set(boolToFloat(next.Healthy))
	metrics.AvailabilityTransitionsTotal.WithLabelValues(string(svc), availabilityLabel(next.Healthy)).Inc()
	for _, fn := range m.hooks {
		fn(svc, *prev, *next)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func availabilityLabel(healthy bool) string {
	if healthy {
		return "available"
	}
	return "unavailable"
}
