package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/keywordscout/internal/adapters/corpus"
	"github.com/zatekoja/keywordscout/internal/adapters/embeddings"
	"github.com/zatekoja/keywordscout/internal/adapters/events"
	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/analytics"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/ollama"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/openai"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

// pipeline holds the services a command needs, built from local files
type pipeline struct {
	cfg        *config.Config
	store      *corpus.Store
	similarity *services.SimilarityService
	filter     *services.KeywordFilterService
	research   *services.KeywordResearchService
	bus        *events.MemoryProgressBus
}

// mustLoadPipeline loads configuration, the corpus and its embeddings, and
// builds the similarity index. Any failure exits the process.
func mustLoadPipeline(ctx context.Context) *pipeline {
	cfg, err := config.Load()
	if err != nil {
		exitWithError("loading configuration: %v", err)
	}
	observability.InitLogger("kwctl", cfg.Server.Environment)
	if !humanOutput {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	if corpusPath != "" {
		cfg.Corpus.Path = corpusPath
	}
	if metadataPath != "" {
		cfg.Corpus.EmbeddingsMetadata = metadataPath
	}
	if chunksDir != "" {
		cfg.Corpus.EmbeddingsDir = chunksDir
	}

	store := corpus.NewStore(cfg.Corpus.Path)
	if err := store.Load(ctx); err != nil {
		exitWithError("loading corpus %s: %v", cfg.Corpus.Path, err)
	}

	vectors, err := embeddings.LoadChunkStore(ctx, cfg.Corpus.EmbeddingsMetadata, cfg.Corpus.EmbeddingsDir)
	if err != nil {
		exitWithError("loading embeddings %s: %v", cfg.Corpus.EmbeddingsMetadata, err)
	}

	embedder, err := embeddings.NewCachedProvider(ollama.NewClient(&cfg.Ollama), cfg.Pipeline.QueryCacheSize, nil, 0, nil)
	if err != nil {
		exitWithError("creating embedding cache: %v", err)
	}

	similarity := services.NewSimilarityService(store, vectors, embedder, nil)
	if err := similarity.Build(ctx); err != nil {
		exitWithError("building similarity index: %v", err)
	}

	var generator providers.TextGenerator
	if cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("Text generator unavailable, seeds come from templates")
		} else {
			generator = client
		}
	}

	filter := services.NewKeywordFilterService(analytics.NewEngine(), cfg.Pipeline.MetricsBatchSize, cfg.Pipeline.MetricsConcurrency, nil)
	seeds := services.NewTextSeedGenerator(generator, cfg.Pipeline.GenerationTimeout)
	collector := services.NewKeywordCollectorService(seeds, similarity, filter, cfg.Pipeline, nil)
	bus := events.NewMemoryProgressBus()

	research := services.NewKeywordResearchService(services.ResearchDependencies{
		Corpus:     store,
		Similarity: similarity,
		Filter:     filter,
		Collector:  collector,
		Bus:        bus,
	}, cfg.Pipeline)

	return &pipeline{
		cfg:        cfg,
		store:      store,
		similarity: similarity,
		filter:     filter,
		research:   research,
		bus:        bus,
	}
}

func (p *pipeline) Close() {
	_ = p.bus.Close()
	_ = p.similarity.Close()
	_ = p.store.Close()
}

var filterOperators = []entities.Operator{
	entities.OperatorGreaterEqual,
	entities.OperatorLessEqual,
	entities.OperatorGreater,
	entities.OperatorLess,
	entities.OperatorEqual,
}

// parseFilter reads "metric<op>value", e.g. "volume>=1000" or "cpc<2.5".
// Two-character operators are tried first so ">=" never parses as ">".
func parseFilter(expr string) (entities.Filter, error) {
	expr = strings.TrimSpace(expr)
	idx := strings.IndexAny(expr, "<>=")
	if idx <= 0 || strings.TrimSpace(expr[:idx]) == "" {
		return entities.Filter{}, fmt.Errorf("filter %q: expected metric, operator and value (e.g. volume>=1000)", expr)
	}
	metric, rest := strings.TrimSpace(expr[:idx]), expr[idx:]

	for _, op := range filterOperators {
		if !strings.HasPrefix(rest, string(op)) {
			continue
		}
		value, err := utils.ParseNumber(strings.TrimSpace(rest[len(op):]))
		if err != nil {
			return entities.Filter{}, fmt.Errorf("filter %q: %w", expr, err)
		}
		f := entities.Filter{Metric: entities.Metric(metric), Operator: op, Value: value}
		if err := f.Validate(); err != nil {
			return entities.Filter{}, err
		}
		return f, nil
	}
	return entities.Filter{}, fmt.Errorf("filter %q: unsupported operator", expr)
}

func parseFilters(exprs []string) ([]entities.Filter, error) {
	filters := make([]entities.Filter, 0, len(exprs))
	for _, expr := range exprs {
		f, err := parseFilter(expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}
