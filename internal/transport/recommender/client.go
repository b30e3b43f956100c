// Package recommender is the HTTP client for the personalization microservice.
package recommender

import (
	"context"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/domain"
	"github.com/kailas-cloud/shelfrank/internal/transport/upstream"
)

const (
	// DefaultTimeout bounds a single recommender call.
	DefaultTimeout = 5 * time.Second
	// DefaultAnonymousID is the subject sentinel for guest recommendations.
	DefaultAnonymousID = "anonymous"
)

// Config holds the recommender client settings.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	AnonymousID string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client fetches ranked product ids for a subject.
type Client struct {
	caller      *upstream.Caller
	anonymousID string
}

// NewClient creates a recommender client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	anon := cfg.AnonymousID
	if anon == "" {
		anon = DefaultAnonymousID
	}
	return &Client{
		caller: upstream.NewCaller(upstream.Config{
			Service:    domain.ServiceRecommender,
			BaseURL:    cfg.BaseURL,
			Timeout:    timeout,
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger,
		}),
		anonymousID: anon,
	}
}

type predictResponse struct {
	Recommendations *[]predictEntry `json:"recommendations"`
}

type predictEntry struct {
	ProductID *int64  `json:"id_producto"`
	Score     float64 `json:"score"`
}

// FetchRecommendations returns the upstream-ordered list for subjectID.
// An empty list is a valid answer, distinct from an error.
func (c *Client) FetchRecommendations(ctx context.Context, subjectID string) ([]domain.RecommendationEntry, error) {
	var entries []domain.RecommendationEntry
	err := c.caller.Do(ctx, "predict",
		func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet,
				c.caller.URL("/predict/"+url.PathEscape(subjectID)), http.NoBody)
		},
		func(body []byte) error {
			var err error
			entries, err = decodePredict(body)
			return err
		},
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // already an UpstreamError
	}
	return entries, nil
}

// FetchPopular returns the guest list (anonymous subject).
func (c *Client) FetchPopular(ctx context.Context) ([]domain.RecommendationEntry, error) {
	return c.FetchRecommendations(ctx, c.anonymousID)
}

// HealthCheck succeeds on any 2xx from GET /health. The payload is free-form.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.caller.Do(ctx, "health", //nolint:wrapcheck // already an UpstreamError
		func(ctx context.Context) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, c.caller.URL("/health"), http.NoBody)
		},
		func([]byte) error { return nil },
	)
}

func decodePredict(body []byte) ([]domain.RecommendationEntry, error) {
	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, upstream.Malformed("decode predict response: %v", err)
	}
	if resp.Recommendations == nil {
		return nil, upstream.Malformed("missing recommendations list")
	}

	raw := *resp.Recommendations
	entries := make([]domain.RecommendationEntry, 0, len(raw))
	for i, e := range raw {
		if e.ProductID == nil {
			return nil, upstream.Malformed("recommendation %d has no id_producto", i)
		}
		entries = append(entries, domain.RecommendationEntry{ProductID: *e.ProductID, Score: e.Score})
	}
	return entries, nil
}
