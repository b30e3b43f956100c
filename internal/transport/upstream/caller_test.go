package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

func getReq(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	}
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	c := NewCaller(Config{Service: domain.ServiceNLP, BaseURL: server.URL + "/", Timeout: time.Second})
	ctx, trace := domain.NewContextWithTrace(context.Background())

	var got string
	err := c.Do(ctx, "probe", getReq(c.URL("/x")), func(body []byte) error {
		got = string(body)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "payload" {
		t.Errorf("body = %q", got)
	}
	if trace.UpstreamCalls != 1 {
		t.Errorf("upstream calls = %d, want 1", trace.UpstreamCalls)
	}
}

func TestDo_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewCaller(Config{Service: domain.ServiceRecommender, BaseURL: server.URL, Timeout: time.Second})
	err := c.Do(context.Background(), "predict", getReq(c.URL("/")), func([]byte) error {
		t.Fatal("decode must not run for non-2xx")
		return nil
	})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) || upErr.Service != domain.ServiceRecommender || upErr.Op != "predict" {
		t.Errorf("expected UpstreamError context, got %v", err)
	}
}

func TestDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewCaller(Config{Service: domain.ServiceNLP, BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	err := c.Do(context.Background(), "analyze", getReq(c.URL("/")), func([]byte) error { return nil })
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestDo_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewCaller(Config{Service: domain.ServiceNLP, BaseURL: url, Timeout: time.Second})
	err := c.Do(context.Background(), "health", getReq(c.URL("/")), func([]byte) error { return nil })
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestDo_CallerCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCaller(Config{Service: domain.ServiceNLP, BaseURL: server.URL, Timeout: time.Second})
	err := c.Do(ctx, "analyze", getReq(c.URL("/")), func([]byte) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestDo_DecodeErrorIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	c := NewCaller(Config{Service: domain.ServiceNLP, BaseURL: server.URL, Timeout: time.Second})
	err := c.Do(context.Background(), "analyze", getReq(c.URL("/")), func([]byte) error {
		return Malformed("missing field %q", "recommendations")
	})
	if !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Fatalf("expected ErrUpstreamMalformed, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "agua", 10, "agua"},
		{"exact", "agua", 4, "agua"},
		{"ascii cut", "agua mineral", 4, "agua..."},
		{"inside two-byte rune", "añejo", 2, "a..."},
		{"after two-byte rune", "añejo", 3, "añ..."},
		{"inside three-byte rune", "€€", 4, "€..."},
		{"first rune split", "ñandú", 1, "..."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate(tc.in, tc.n)
			if got != tc.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tc.in, tc.n)
			}
		})
	}
}

func TestDo_NonSuccessBodyStaysValidUTF8(t *testing.T) {
	body := strings.Repeat("a", 199) + "ñ" + strings.Repeat("q", 50)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	c := NewCaller(Config{Service: domain.ServiceNLP, BaseURL: server.URL, Timeout: time.Second})
	err := c.Do(context.Background(), "analyze", getReq(c.URL("/")), func([]byte) error { return nil })
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if !utf8.ValidString(err.Error()) {
		t.Errorf("error text is not valid UTF-8: %q", err.Error())
	}
	if strings.ContainsAny(err.Error(), "ñq") {
		t.Errorf("body must be truncated: %q", err.Error())
	}
}
