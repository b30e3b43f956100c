package availability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// --- Mocks ---

type mockChecker struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
}

func (m *mockChecker) HealthCheck(_ context.Context) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockChecker) set(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

type transition struct {
	svc      domain.Service
	from, to bool
}

type recorder struct {
	mu  sync.Mutex
	got []transition
}

func (r *recorder) hook(svc domain.Service, from, to domain.Availability) {
	r.mu.Lock()
	r.got = append(r.got, transition{svc: svc, from: from.Healthy, to: to.Healthy})
	r.mu.Unlock()
}

func (r *recorder) transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.got...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// --- Tests ---

func TestNew_InitialStateUnavailable(t *testing.T) {
	m := New(map[domain.Service]Checker{domain.ServiceRecommender: &mockChecker{}})

	st := m.State(domain.ServiceRecommender)
	if st.Healthy {
		t.Error("expected unavailable before first check")
	}
	if st.Checked() {
		t.Errorf("expected zero LastCheckedAt, got %v", st.LastCheckedAt)
	}
}

func TestIsAvailable_UnknownService(t *testing.T) {
	m := New(map[domain.Service]Checker{domain.ServiceNLP: &mockChecker{}})
	m.checkAll(context.Background())

	if m.IsAvailable(domain.ServiceRecommender) {
		t.Error("unknown service must be unavailable")
	}
	if !m.IsAvailable(domain.ServiceNLP) {
		t.Error("expected nlp available")
	}
}

func TestCheck_FailThenRecover(t *testing.T) {
	checker := &mockChecker{err: errors.New("connection refused")}
	rec := &recorder{}
	m := New(map[domain.Service]Checker{domain.ServiceRecommender: checker}, OnTransition(rec.hook))

	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return t1 }
	m.checkAll(context.Background())

	st := m.State(domain.ServiceRecommender)
	if st.Healthy {
		t.Fatal("expected unavailable after failing check")
	}
	if !st.LastCheckedAt.Equal(t1) {
		t.Errorf("LastCheckedAt = %v, want %v", st.LastCheckedAt, t1)
	}
	if len(rec.transitions()) != 0 {
		t.Errorf("false to false must not fire a transition: %+v", rec.transitions())
	}

	checker.set(nil)
	t2 := t1.Add(30 * time.Second)
	m.now = func() time.Time { return t2 }
	m.checkAll(context.Background())

	st = m.State(domain.ServiceRecommender)
	if !st.Healthy || !st.LastCheckedAt.Equal(t2) {
		t.Fatalf("expected healthy at %v, got %+v", t2, st)
	}
	got := rec.transitions()
	if len(got) != 1 || got[0] != (transition{svc: domain.ServiceRecommender, from: false, to: true}) {
		t.Errorf("transitions = %+v", got)
	}
}

func TestCheck_OnlyFlipsFireHooks(t *testing.T) {
	checker := &mockChecker{}
	rec := &recorder{}
	m := New(map[domain.Service]Checker{domain.ServiceNLP: checker}, OnTransition(rec.hook))
	ctx := context.Background()

	m.checkAll(ctx)
	m.checkAll(ctx)
	checker.set(errors.New("down"))
	m.checkAll(ctx)
	m.checkAll(ctx)

	got := rec.transitions()
	if len(got) != 2 {
		t.Fatalf("expected 2 transitions, got %+v", got)
	}
	if !got[0].to || got[1].to {
		t.Errorf("unexpected transition order: %+v", got)
	}
}

func TestCheck_SkipsUpdateOnShutdown(t *testing.T) {
	checker := &mockChecker{}
	m := New(map[domain.Service]Checker{domain.ServiceNLP: checker})
	m.checkAll(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.set(errors.New("context canceled"))
	m.checkAll(ctx)

	if !m.IsAvailable(domain.ServiceNLP) {
		t.Error("a probe cut by shutdown must not change state")
	}
}

func TestRun_ChecksImmediatelyAndOnDemand(t *testing.T) {
	rec := &mockChecker{}
	nlp := &mockChecker{err: errors.New("down")}
	m := New(map[domain.Service]Checker{
		domain.ServiceRecommender: rec,
		domain.ServiceNLP:         nlp,
	}, WithInterval(time.Hour), WithMinRecheck(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case <-m.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor never became ready")
	}
	if !m.IsAvailable(domain.ServiceRecommender) || m.IsAvailable(domain.ServiceNLP) {
		t.Fatalf("unexpected snapshot: %+v", m.Snapshot())
	}

	nlp.set(nil)
	m.ReportFailure(domain.ServiceNLP)
	waitFor(t, func() bool { return m.IsAvailable(domain.ServiceNLP) })

	if rec.calls.Load() != 1 {
		t.Errorf("recommender should only be probed once, got %d", rec.calls.Load())
	}
}

func TestForceCheck_NeverBlocks(t *testing.T) {
	m := New(map[domain.Service]Checker{domain.ServiceNLP: &mockChecker{}})

	for range 100 {
		m.ForceCheck(domain.ServiceNLP)
	}
	m.ForceCheck(domain.ServiceRecommender)

	if !m.services[domain.ServiceNLP].pending.Load() {
		t.Error("expected pending recheck")
	}
	m.checkPending(context.Background())
	if m.services[domain.ServiceNLP].pending.Load() {
		t.Error("pending flag must clear after the probe")
	}
	if !m.IsAvailable(domain.ServiceNLP) {
		t.Error("expected nlp available after pending probe")
	}
}

func TestCheck_AppliesTimeout(t *testing.T) {
	slow := checkerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	m := New(map[domain.Service]Checker{domain.ServiceNLP: slow}, WithCheckTimeout(10*time.Millisecond))

	start := time.Now()
	m.checkAll(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not honor timeout")
	}
	st := m.State(domain.ServiceNLP)
	if st.Healthy || !st.Checked() {
		t.Errorf("expected checked and unavailable, got %+v", st)
	}
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func startMonitor(t *testing.T, m *Monitor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-m.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor never became ready")
	}
}

func TestForceCheck_SpacedByMinRecheck(t *testing.T) {
	down := &mockChecker{err: errors.New("connection refused")}
	m := New(map[domain.Service]Checker{domain.ServiceNLP: down},
		WithInterval(time.Hour), WithMinRecheck(time.Hour))
	startMonitor(t, m)

	var wg sync.WaitGroup
	stop := time.Now().Add(100 * time.Millisecond)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(stop) {
				if !m.IsAvailable(domain.ServiceNLP) {
					m.ForceCheck(domain.ServiceNLP)
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if got := down.calls.Load(); got != 1 {
		t.Errorf("health probes = %d, want only the initial one", got)
	}
	if !m.services[domain.ServiceNLP].pending.Load() {
		t.Error("deferred recheck must stay pending")
	}
}

func TestForceCheck_DeferredRecheckRuns(t *testing.T) {
	nlp := &mockChecker{err: errors.New("connection refused")}
	m := New(map[domain.Service]Checker{domain.ServiceNLP: nlp},
		WithInterval(time.Hour), WithMinRecheck(50*time.Millisecond))
	startMonitor(t, m)

	nlp.set(nil)
	m.ForceCheck(domain.ServiceNLP)
	m.ForceCheck(domain.ServiceNLP)
	waitFor(t, func() bool { return m.IsAvailable(domain.ServiceNLP) })

	if got := nlp.calls.Load(); got != 2 {
		t.Errorf("health probes = %d, want 2", got)
	}
}

func TestCheckPending_DefersRecentlyChecked(t *testing.T) {
	nlp := &mockChecker{}
	m := New(map[domain.Service]Checker{domain.ServiceNLP: nlp}, WithMinRecheck(5*time.Second))
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return t0 }
	m.checkAll(context.Background())

	m.now = func() time.Time { return t0.Add(time.Second) }
	m.ForceCheck(domain.ServiceNLP)
	if wait := m.checkPending(context.Background()); wait != 4*time.Second {
		t.Errorf("wait = %v, want 4s", wait)
	}
	if nlp.calls.Load() != 1 || !m.services[domain.ServiceNLP].pending.Load() {
		t.Fatalf("recheck must be deferred: calls=%d", nlp.calls.Load())
	}

	m.now = func() time.Time { return t0.Add(5 * time.Second) }
	if wait := m.checkPending(context.Background()); wait != 0 {
		t.Errorf("wait = %v, want 0", wait)
	}
	if nlp.calls.Load() != 2 || m.services[domain.ServiceNLP].pending.Load() {
		t.Errorf("due recheck must run: calls=%d", nlp.calls.Load())
	}
}

func TestMonitor_ConcurrentReadersDuringFlips(t *testing.T) {
	var n atomic.Int32
	flapping := checkerFunc(func(context.Context) error {
		if n.Add(1)%2 == 0 {
			return errors.New("flap")
		}
		return nil
	})
	m := New(map[domain.Service]Checker{
		domain.ServiceNLP:         flapping,
		domain.ServiceRecommender: &mockChecker{},
	}, WithInterval(time.Millisecond), WithMinRecheck(0))
	startMonitor(t, m)

	var wg sync.WaitGroup
	stop := time.Now().Add(100 * time.Millisecond)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(stop) {
				_ = m.IsAvailable(domain.ServiceNLP)
				if st := m.State(domain.ServiceNLP); !st.Checked() {
					t.Error("state published before its first check")
					return
				}
				snap := m.Snapshot()
				if len(snap) != 2 || !snap[domain.ServiceRecommender].Healthy {
					t.Errorf("inconsistent snapshot: %+v", snap)
					return
				}
				m.ForceCheck(domain.ServiceNLP)
			}
		}()
	}
	wg.Wait()

	if n.Load() < 2 {
		t.Errorf("expected the state to flip at least once, got %d probes", n.Load())
	}
}
