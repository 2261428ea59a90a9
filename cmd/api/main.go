package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/keywordscout/internal/adapters/cache"
	"github.com/zatekoja/keywordscout/internal/adapters/corpus"
	"github.com/zatekoja/keywordscout/internal/adapters/database"
	"github.com/zatekoja/keywordscout/internal/adapters/embeddings"
	"github.com/zatekoja/keywordscout/internal/adapters/events"
	"github.com/zatekoja/keywordscout/internal/adapters/search"
	"github.com/zatekoja/keywordscout/internal/api/handlers"
	"github.com/zatekoja/keywordscout/internal/api/middleware"
	"github.com/zatekoja/keywordscout/internal/api/routes"
	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/analytics"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/ollama"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/openai"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/redis"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Environment)
	log.Info().
		Str("service", cfg.OTEL.ServiceName).
		Str("version", cfg.OTEL.ServiceVersion).
		Str("env", cfg.Server.Environment).
		Msg("Starting API server")

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			observability.EnableLogExport(cfg.OTEL.ServiceName)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
	}
	pipelineMetrics, err := observability.InitPipelineMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize pipeline metrics")
	}

	// The corpus and its embeddings are required; nothing can be served without them
	store := corpus.NewStore(cfg.Corpus.Path)
	if err := store.Load(ctx); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Corpus.Path).Msg("Failed to load keyword corpus")
	}
	defer store.Close()

	vectors, err := embeddings.LoadChunkStore(ctx, cfg.Corpus.EmbeddingsMetadata, cfg.Corpus.EmbeddingsDir)
	if err != nil {
		log.Fatal().Err(err).Str("metadata", cfg.Corpus.EmbeddingsMetadata).Msg("Failed to load corpus embeddings")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	pgClient.SetMetrics(metrics)

	if cfg.Database.RunMigrations {
		if err := postgres.RunMigrations(&cfg.Database); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
		log.Info().Msg("Database migrations applied")
	}

	// Initialize Redis client
	var cacheProvider providers.CacheProvider
	var progressBus providers.ProgressBus
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		// Continue without Redis: no shared cache, progress stays in-process
		log.Warn().Err(err).Msg("Failed to initialize Redis client")
		progressBus = events.NewMemoryProgressBus()
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		progressBus = events.NewRedisProgressBus(redisClient)
	}
	defer progressBus.Close()

	// Initialize Typesense client
	var searchRepo repositories.KeywordSearchRepository
	typesenseClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Typesense client; keyword search disabled")
	} else {
		adapter := search.NewTypesenseAdapter(typesenseClient)
		if err := adapter.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema")
		}
		searchRepo = adapter
	}

	// Embedding provider with an in-process LRU in front of the shared cache
	ollamaClient := ollama.NewClient(&cfg.Ollama)
	if err := ollamaClient.WaitReady(ctx); err != nil {
		log.Warn().Err(err).Msg("Ollama not reachable; query embeddings will fail until it is")
	}
	embedder, err := embeddings.NewCachedProvider(ollamaClient, cfg.Pipeline.QueryCacheSize, cacheProvider, cfg.Pipeline.QueryCacheTTL, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize embedding cache")
	}

	var textGenerator providers.TextGenerator
	if cfg.OpenAI.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set; seeds fall back to templates and competitor suggestions are disabled")
	} else {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize OpenAI client")
		} else {
			textGenerator = client
		}
	}

	// Initialize services
	similarity := services.NewSimilarityService(store, vectors, embedder, pipelineMetrics)
	if err := similarity.Build(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to build similarity index")
	}
	defer similarity.Close()

	engine := analytics.NewEngine()
	filter := services.NewKeywordFilterService(engine, cfg.Pipeline.MetricsBatchSize, cfg.Pipeline.MetricsConcurrency, pipelineMetrics)
	seeds := services.NewTextSeedGenerator(textGenerator, cfg.Pipeline.GenerationTimeout)
	collector := services.NewKeywordCollectorService(seeds, similarity, filter, cfg.Pipeline, pipelineMetrics)

	metricsRepo := database.NewKeywordMetricsAdapter(pgClient)
	researchAnalytics := services.NewResearchAnalyticsService(database.NewResearchAnalyticsAdapter(pgClient))

	research := services.NewKeywordResearchService(services.ResearchDependencies{
		Corpus:      store,
		Similarity:  similarity,
		Filter:      filter,
		Collector:   collector,
		Checkpoints: database.NewGenerationProgressAdapter(pgClient),
		Bus:         progressBus,
		Writer:      services.NewKeywordMetricsWriter(metricsRepo, cfg.Pipeline.WriteBatchSize, cfg.Pipeline.WriteConcurrency),
		Analytics:   researchAnalytics,
	}, cfg.Pipeline)

	competitors := services.NewCompetitorService(textGenerator, cacheProvider, cfg.OpenAI.Timeout)

	// Initialize handlers
	researchHandler := handlers.NewResearchHandler(research, progressBus, metricsRepo, cfg.Pipeline.RunTimeout)

	checks := map[string]handlers.HealthCheck{
		"corpus": func(context.Context) error {
			if similarity.Len() == 0 {
				return errors.New("similarity index is empty")
			}
			return nil
		},
		"postgres": pgClient.Ping,
		"ollama":   ollamaClient.Ping,
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, nil, metrics)
	}

	router := routes.NewRouter(routes.Handlers{
		Keyword:    handlers.NewKeywordHandler(research, store, engine, searchRepo),
		Research:   researchHandler,
		Competitor: handlers.NewCompetitorHandler(competitors),
		Analytics:  handlers.NewAnalyticsHandler(researchAnalytics),
		Health:     handlers.NewHealthHandler(checks),
	}, cacheMiddleware, metricsRepo, metrics, cfg.Server.AllowedOrigins)

	// Progress streams stay open for the whole run, so there is no write timeout
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddr).Int("keywords", similarity.Len()).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	// Cancelled runs keep their last checkpoint and can be resumed later
	researchHandler.Shutdown()
	researchAnalytics.Wait()

	log.Info().Msg("Server stopped")
}
