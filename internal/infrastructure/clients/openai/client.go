package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultBurst   = 5
	providerName   = "openai"
)

// ErrUnauthorized is returned when the API rejects the configured key
var ErrUnauthorized = errors.New("openai request unauthorized")

// Client implements the text generation collaborator over the OpenAI
// responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

var _ providers.TextGenerator = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.OpenAIConfig, opts ...Option) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newLimiter(cfg.RateLimitRPM),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openai",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				// a cancelled caller says nothing about the upstream's health
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				observability.GetLogger().Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newLimiter(rpm int) *rate.Limiter {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), defaultBurst)
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Generate sends one system/user prompt pair and returns the model's raw text.
// Callers own parsing of the output.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "openai.generate")
	defer span.End()

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		observability.RecordRateLimitWait(ctx, providerName, c.model, time.Since(waitStart))
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}
	return out.(string), nil
}

func (c *Client) do(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(buildResponsesPayload(c.model, systemPrompt, userPrompt))
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	call := observability.StartModelCall(providerName, c.model, "generate")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		call.End(ctx, 0, err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		call.End(ctx, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		}
		return "", fmt.Errorf("openai request failed with status %d", resp.StatusCode)
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		call.End(ctx, resp.StatusCode, err)
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}

	text := envelope.outputText()
	if text == "" {
		call.End(ctx, resp.StatusCode, errors.New("missing output text"))
		return "", errors.New("openai response missing output text")
	}

	call.End(ctx, resp.StatusCode, nil)
	return text, nil
}
