package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
	"github.com/zatekoja/keywordscout/pkg/retry"
)

// DefaultKeywordsCollection is used when no collection name is configured
const DefaultKeywordsCollection = "keywords"

// Client represents a Typesense client
type Client struct {
	client     *typesense.Client
	collection string
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	logger := observability.LoggerFromContext(ctx)

	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.DoWithLog(
		ctx,
		retry.DefaultConfig(),
		"Typesense",
		func() error {
			healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_, err := client.Health(healthCtx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = DefaultKeywordsCollection
	}

	logger.Info().Str("url", cfg.URL).Str("collection", collection).Msg("Connected to Typesense")
	return &Client{client: client, collection: collection}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// Collection returns the keyword collection name
func (c *Client) Collection() string {
	return c.collection
}

// KeywordsSchema describes the keyword collection
func KeywordsSchema(name string) *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: name,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "keyword", Type: "string"},
			{Name: "volume", Type: "float"},
			{Name: "competition", Type: "float", Facet: pointer.True()},
			{Name: "cpc", Type: "float"},
			{Name: "top_page_bid", Type: "float"},
			{Name: "growth_3m", Type: "float", Optional: pointer.True()},
			{Name: "growth_yoy", Type: "float", Optional: pointer.True()},
			{Name: "volatility", Type: "float", Optional: pointer.True()},
			{Name: "opportunity_score", Type: "float", Optional: pointer.True()},
			{Name: "tokens", Type: "string[]", Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("volume"),
	}
}

// InitSchema ensures the keyword collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx)

	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == c.collection {
			logger.Debug().Str("collection", c.collection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, KeywordsSchema(c.collection)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	logger.Info().Str("collection", c.collection).Msg("Created Typesense collection")
	return nil
}
