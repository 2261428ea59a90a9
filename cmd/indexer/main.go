package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/keywordscout/internal/adapters/corpus"
	"github.com/zatekoja/keywordscout/internal/adapters/search"
	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/analytics"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
	"github.com/zatekoja/keywordscout/pkg/config"
)

const indexConcurrency = 8

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Server.Environment)

	store := corpus.NewStore(cfg.Corpus.Path)
	if err := store.Load(ctx); err != nil {
		return err
	}
	defer store.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Str("collection", tsClient.Collection()).Msg("Reset requested, deleting keyword collection")
		if _, err := tsClient.Client().Collection(tsClient.Collection()).Delete(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to delete collection")
		}
	}

	adapter := search.NewTypesenseAdapter(tsClient)
	if err := adapter.InitSchema(ctx); err != nil {
		return err
	}

	filter := services.NewKeywordFilterService(
		analytics.NewEngine(),
		cfg.Pipeline.MetricsBatchSize,
		cfg.Pipeline.MetricsConcurrency,
		nil,
	)
	enriched, err := filter.EnrichAll(ctx, store.All())
	if err != nil {
		return err
	}

	log.Info().Int("keywords", len(enriched)).Msg("Indexing keywords")

	var indexed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexConcurrency)
	for _, kw := range enriched {
		g.Go(func() error {
			if err := adapter.Index(gctx, kw); err != nil {
				failed.Add(1)
				log.Warn().Err(err).Str("keyword", kw.Keyword).Msg("Failed to index keyword")
				return gctx.Err()
			}
			indexed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Int64("indexed", indexed.Load()).Int64("failed", failed.Load()).Msg("Indexing complete")
	return nil
}
