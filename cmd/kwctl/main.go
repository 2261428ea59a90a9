// Package main provides the kwctl CLI: keyword discovery against local
// corpus and embedding files, without the HTTP server or a database.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	humanOutput  bool
	corpusPath   string
	metadataPath string
	chunksDir    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		exitWithError("%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kwctl",
	Short: "Discover and score search keywords for a product idea",
	Long: `kwctl runs the keyword discovery pipeline against local files.

It loads the keyword corpus CSV and its precomputed embeddings, embeds
queries through Ollama and, when OPENAI_API_KEY is set, asks the text
generator for seed queries. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&corpusPath, "corpus", "", "Keyword corpus CSV (default from CORPUS_PATH)")
	rootCmd.PersistentFlags().StringVar(&metadataPath, "metadata", "", "Embedding metadata JSON (default from EMBEDDINGS_METADATA)")
	rootCmd.PersistentFlags().StringVar(&chunksDir, "chunks", "", "Embedding chunk directory (default from EMBEDDINGS_DIR)")
	rootCmd.Version = Version
}
