// Package upstream performs bounded HTTP calls to external services and
// classifies their failures into the domain upstream errors.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	"github.com/kailas-cloud/shelfrank/internal/metrics"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// Config holds the settings shared by every upstream client.
type Config struct {
	Service    domain.Service
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Caller issues requests against one external service.
type Caller struct {
	service domain.Service
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewCaller creates a Caller. A nil HTTPClient uses a fresh client without
// its own timeout; the per-call context deadline bounds every request.
func NewCaller(cfg Config) *Caller {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Caller{
		service: cfg.Service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client:  client,
		logger:  logger,
	}
}

// URL joins path onto the configured base URL.
func (c *Caller) URL(path string) string {
	return c.baseURL + path
}

// Do sends the request built by newReq under the call timeout and hands the
// body of a 2xx response to decode. Transport failures, timeouts and non-2xx
// statuses wrap domain.ErrUpstreamUnavailable; decode errors should wrap
// domain.ErrUpstreamMalformed.
func (c *Caller) Do(
	ctx context.Context, op string,
	newReq func(ctx context.Context) (*http.Request, error),
	decode func(body []byte) error,
) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := newReq(ctx)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}

	domain.TraceFromContext(ctx).AddUpstreamCall()
	start := time.Now()

	body, err := c.roundTrip(req)
	if err != nil {
		c.observe(op, "unavailable", start)
		c.logger.Warn("Upstream request failed",
			zap.String("service", string(c.service)),
			zap.String("op", op),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.NewUpstreamError(c.service, op, err)
	}

	if err := decode(body); err != nil {
		status := "malformed"
		if !errors.Is(err, domain.ErrUpstreamMalformed) {
			status = "unavailable"
		}
		c.observe(op, status, start)
		c.logger.Warn("Upstream response rejected",
			zap.String("service", string(c.service)),
			zap.String("op", op),
			zap.Error(err),
		)
		return domain.NewUpstreamError(c.service, op, err)
	}

	c.observe(op, "success", start)
	return nil
}

func (c *Caller) roundTrip(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, unwrapContext(req.Context(), err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrUpstreamUnavailable, unwrapContext(req.Context(), err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s",
			domain.ErrUpstreamUnavailable, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func (c *Caller) observe(op, status string, start time.Time) {
	metrics.ObserveUpstream(string(c.service), op, status, time.Since(start).Seconds())
}

// unwrapContext surfaces the context error so callers can tell a cancelled
// request (errors.Is context.Canceled) from a dead upstream.
func unwrapContext(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary so a multi-byte character is never split.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Malformed wraps a decode failure.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrUpstreamMalformed, fmt.Sprintf(format, args...))
}
