package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	OpenAI    OpenAIConfig
	Ollama    OllamaConfig
	Corpus    CorpusConfig
	Pipeline  PipelineConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Environment    string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	RunMigrations bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// OpenAIConfig holds configuration for the text generation collaborator
type OpenAIConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	RateLimitRPM int
	Timeout      time.Duration
}

// OllamaConfig holds configuration for the embedding model server
type OllamaConfig struct {
	BaseURL    string
	Model      string
	Dimensions int
	RateLimit  float64
	Timeout    time.Duration
}

// CorpusConfig points at the keyword corpus and its precomputed embeddings
type CorpusConfig struct {
	Path               string
	EmbeddingsMetadata string
	EmbeddingsDir      string
}

// PipelineConfig holds tuning for the discovery and collection pipeline.
// Every field can be overridden from the YAML file named by CONFIG_FILE.
type PipelineConfig struct {
	SeedCount             int           `yaml:"seed_count"`
	PoolSize              int           `yaml:"pool_size"`
	DefaultTargetCount    int           `yaml:"default_target_count"`
	MetricsBatchSize      int           `yaml:"metrics_batch_size"`
	MetricsConcurrency    int           `yaml:"metrics_concurrency"`
	WriteBatchSize        int           `yaml:"write_batch_size"`
	WriteConcurrency      int           `yaml:"write_concurrency"`
	SeedTimeout           time.Duration `yaml:"seed_timeout"`
	GenerationTimeout     time.Duration `yaml:"generation_timeout"`
	HeartbeatInterval     time.Duration `yaml:"heartbeat_interval"`
	RunTimeout            time.Duration `yaml:"run_timeout"`
	QueryCacheSize        int           `yaml:"query_cache_size"`
	QueryCacheTTL         time.Duration `yaml:"query_cache_ttl"`
	ProgressCheckpointTTL time.Duration `yaml:"progress_checkpoint_ttl"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; variables already set in the
// environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Environment:    getEnv("ENVIRONMENT", "development"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnvAsInt("DB_PORT", 5432),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", ""),
			Database:      getEnv("DB_NAME", "keywordscout"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:        getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:     getEnv("TYPESENSE_API_KEY", "xyz"),
			Collection: getEnv("TYPESENSE_COLLECTION", "keywords"),
		},
		OpenAI: OpenAIConfig{
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			RateLimitRPM: getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			Timeout:      getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
		},
		Ollama: OllamaConfig{
			BaseURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
			Model:      getEnv("OLLAMA_EMBED_MODEL", "all-minilm"),
			Dimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 384),
			RateLimit:  getEnvAsFloat("OLLAMA_RATE_LIMIT", 20),
			Timeout:    getEnvAsDuration("OLLAMA_TIMEOUT", 10*time.Second),
		},
		Corpus: CorpusConfig{
			Path:               getEnv("CORPUS_PATH", "data/keywords.csv"),
			EmbeddingsMetadata: getEnv("EMBEDDINGS_METADATA", "data/embeddings_metadata.json"),
			EmbeddingsDir:      getEnv("EMBEDDINGS_DIR", "data/embeddings_chunks"),
		},
		Pipeline: DefaultPipelineConfig(),
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "keywordscout"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.Pipeline.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.Pipeline.applyEnv()

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPipelineConfig returns the pipeline tuning used when nothing is overridden
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SeedCount:             12,
		PoolSize:              500,
		DefaultTargetCount:    50,
		MetricsBatchSize:      50,
		MetricsConcurrency:    4,
		WriteBatchSize:        100,
		WriteConcurrency:      2,
		SeedTimeout:           20 * time.Second,
		GenerationTimeout:     30 * time.Second,
		HeartbeatInterval:     2 * time.Second,
		RunTimeout:            15 * time.Minute,
		QueryCacheSize:        1024,
		QueryCacheTTL:         24 * time.Hour,
		ProgressCheckpointTTL: 72 * time.Hour,
	}
}

// Validate rejects tuning values the pipeline cannot run with
func (p PipelineConfig) Validate() error {
	switch {
	case p.SeedCount <= 0:
		return fmt.Errorf("pipeline seed_count must be positive, got %d", p.SeedCount)
	case p.PoolSize <= 0:
		return fmt.Errorf("pipeline pool_size must be positive, got %d", p.PoolSize)
	case p.MetricsBatchSize <= 0 || p.MetricsConcurrency <= 0:
		return fmt.Errorf("pipeline metrics batching must be positive, got %dx%d", p.MetricsBatchSize, p.MetricsConcurrency)
	case p.WriteBatchSize <= 0 || p.WriteConcurrency <= 0:
		return fmt.Errorf("pipeline write batching must be positive, got %dx%d", p.WriteBatchSize, p.WriteConcurrency)
	case p.HeartbeatInterval <= 0:
		return fmt.Errorf("pipeline heartbeat_interval must be positive, got %s", p.HeartbeatInterval)
	}
	return nil
}

func (p *PipelineConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file struct {
		Pipeline PipelineConfig `yaml:"pipeline"`
	}
	file.Pipeline = *p
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	*p = file.Pipeline
	return nil
}

func (p *PipelineConfig) applyEnv() {
	p.SeedCount = getEnvAsInt("PIPELINE_SEED_COUNT", p.SeedCount)
	p.PoolSize = getEnvAsInt("PIPELINE_POOL_SIZE", p.PoolSize)
	p.SeedTimeout = getEnvAsDuration("PIPELINE_SEED_TIMEOUT", p.SeedTimeout)
	p.HeartbeatInterval = getEnvAsDuration("PIPELINE_HEARTBEAT_INTERVAL", p.HeartbeatInterval)
	p.RunTimeout = getEnvAsDuration("PIPELINE_RUN_TIMEOUT", p.RunTimeout)
}

// IsDevelopment reports whether the server runs in a development environment
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatabaseURL returns the connection URL used by the migration runner
func (c *DatabaseConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
