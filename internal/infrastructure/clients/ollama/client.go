package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
	"github.com/zatekoja/keywordscout/pkg/retry"
)

const (
	// DefaultModel matches the model the corpus embeddings were built with
	DefaultModel = "all-minilm"

	// DefaultDimensions is the vector length of DefaultModel
	DefaultDimensions = 384

	apiPathTags       = "/api/tags"
	apiPathEmbeddings = "/api/embeddings"
)

// Client generates embeddings through the Ollama API
type Client struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ providers.EmbeddingProvider = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps requests per second; zero or less disables limiting
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates an Ollama embedding client from config
func NewClient(cfg *config.OllamaConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.dimensions <= 0 {
		c.dimensions = DefaultDimensions
	}
	WithRateLimit(cfg.RateLimit)(c)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WaitReady blocks until Ollama answers or the retry budget is spent
func (c *Client) WaitReady(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx)
	return retry.DoWithLog(
		ctx,
		retry.DefaultConfig(),
		"Ollama",
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return c.Ping(pingCtx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Ollama connection attempt failed")
		},
	)
}

// Ping checks that Ollama is running
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPathTags, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not running: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return retry.Permanent(fmt.Errorf("ollama rejected the request with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
}

// Embed generates an embedding for the given text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := observability.StartSpan(ctx, "ollama.Embed")
	defer span.End()

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
		observability.RecordRateLimitWait(ctx, "ollama", c.model, time.Since(waitStart))
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPathEmbeddings, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	call := observability.StartModelCall("ollama", c.model, "embed")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		call.End(ctx, 0, err)
		observability.RecordError(span, err)
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	embedding, err := c.decodeEmbedding(resp)
	call.End(ctx, resp.StatusCode, err)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return embedding, nil
}

func (c *Client) decodeEmbedding(resp *http.Response) ([]float32, error) {
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, respBody)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Embedding) != c.dimensions {
		return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(result.Embedding), c.dimensions)
	}
	return result.Embedding, nil
}

// Dimensions returns the expected vector dimensions
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Model returns the embedding model name
func (c *Client) Model() string {
	return c.model
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}
