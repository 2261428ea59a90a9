package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/migrations"
	"github.com/zatekoja/keywordscout/pkg/config"
	"github.com/zatekoja/keywordscout/pkg/retry"
)

// Client represents a PostgreSQL database client
type Client struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewClient creates a new PostgreSQL client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.DatabaseConfig) (*Client, error) {
	logger := observability.LoggerFromContext(ctx)

	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = retry.DoWithLog(
		ctx,
		retry.DefaultConfig(),
		"PostgreSQL",
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("PostgreSQL connection attempt failed")
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to PostgreSQL")
	return &Client{db: db}, nil
}

// NewFromDB wraps an existing connection pool
func NewFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// RunMigrations applies every embedded migration not yet applied
func RunMigrations(cfg *config.DatabaseConfig) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// SetMetrics enables query duration metrics labelled by operation name
func (c *Client) SetMetrics(metrics *observability.Metrics) {
	c.metrics = metrics
}

// Exec runs a statement and records its duration under op
func (c *Client) Exec(ctx context.Context, op, query string, args ...interface{}) (sql.Result, error) {
	defer c.observe(ctx, op, time.Now())
	return c.db.ExecContext(ctx, query, args...)
}

// Query runs a query and records the time to first row under op
func (c *Client) Query(ctx context.Context, op, query string, args ...interface{}) (*sql.Rows, error) {
	defer c.observe(ctx, op, time.Now())
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRow runs a single-row query and records its duration under op
func (c *Client) QueryRow(ctx context.Context, op, query string, args ...interface{}) *sql.Row {
	defer c.observe(ctx, op, time.Now())
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Client) observe(ctx context.Context, op string, start time.Time) {
	observability.RecordDBMetric(ctx, c.metrics, op, time.Since(start))
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
