// Package nlp is the HTTP client for the query interpretation microservice.
package nlp

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	"github.com/kailas-cloud/shelfrank/internal/transport/upstream"
)

const (
	// DefaultTimeout bounds a single interpretation call.
	DefaultTimeout = 5 * time.Second
	// DefaultMaxRecommendations is the match count requested per query.
	DefaultMaxRecommendations = 20
	healthyStatus             = "healthy"
)

// Config holds the NLP client settings.
type Config struct {
	BaseURL             string
	Timeout             time.Duration
	MaxRecommendations  int
	EnableSQLGeneration bool
	HTTPClient          *http.Client
	Logger              *zap.Logger
}

// Client interprets free-text queries.
type Client struct {
	caller  *upstream.Caller
	options analyzeOptions
}

// NewClient creates an NLP client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRecs := cfg.MaxRecommendations
	if maxRecs <= 0 {
		maxRecs = DefaultMaxRecommendations
	}
	return &Client{
		caller: upstream.NewCaller(upstream.Config{
			Service:    domain.ServiceNLP,
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger,
		}),
		options: analyzeOptions{
			MaxRecommendations:    maxRecs,
			EnableCorrection:      true,
			EnableRecommendations: true,
			EnableSQLGeneration:   cfg.EnableSQLGeneration,
		},
	}
}

// Interpret sends queryText for analysis. Callers must not pass blank input.
func (c *Client) Interpret(ctx context.Context, queryText string) (domain.SearchResult, error) {
	payload, err := json.Marshal(analyzeRequest{Query: queryText, Options: c.options})
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("encode analyze request: %w", err)
	}

	start := time.Now()
	var result domain.SearchResult
	err = c.caller.Do(ctx, "analyze",
		func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				c.caller.URL("/api/nlp/analyze"), bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
			return req, nil
		},
		func(body []byte) error {
			var err error
			result, err = decodeAnalyze(body, queryText)
			return err
		},
	)
	if err != nil {
		return domain.SearchResult{}, err //nolint:wrapcheck // already an UpstreamError
	}

	if result.ProcessingTimeMs == 0 {
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
	}
	return result, nil
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// HealthCheck succeeds only when GET /api/health reports status "healthy".
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.caller.Do(ctx, "health", //nolint:wrapcheck // already an UpstreamError
		func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, c.caller.URL("/api/health"), http.NoBody)
		},
		func(body []byte) error {
			var h healthResponse
			if err := json.Unmarshal(body, &h); err != nil {
				return upstream.Malformed("decode health response: %v", err)
			}
			if h.Status != healthyStatus {
				return fmt.Errorf("%w: status %q, components %v", domain.ErrUpstreamUnavailable, h.Status, h.Components)
			}
			return nil
		},
	)
}

func decodeAnalyze(body []byte, query string) (domain.SearchResult, error) {
	var resp analyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.SearchResult{}, upstream.Malformed("decode analyze response: %v", err)
	}
	if resp.Success != nil && !*resp.Success {
		msg := ""
		if resp.Error != nil {
			msg = *resp.Error
		}
		return domain.SearchResult{}, fmt.Errorf("%w: service reported failure: %s", domain.ErrUpstreamUnavailable, msg)
	}
	return mapResponse(&resp, query)
}
