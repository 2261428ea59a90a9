package main

import (
	"github.com/spf13/cobra"
)

var similarTop int

func init() {
	similarCmd.Flags().IntVar(&similarTop, "top", 20, "Number of nearest keywords to return")
	rootCmd.AddCommand(similarCmd)
}

var similarCmd = &cobra.Command{
	Use:   "similar <text>",
	Short: "List the corpus keywords closest to a text",
	Long: `List the corpus keywords closest to a text by embedding similarity.

Examples:
  kwctl similar "dog walking app"
  kwctl similar "meal kits for diabetics" --top 50 --human`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := mustLoadPipeline(ctx)
	defer p.Close()

	candidates, err := p.similarity.FindSimilar(ctx, args[0], similarTop)
	if err != nil {
		exitWithError("finding similar keywords: %v", err)
	}

	if !humanOutput {
		return outputJSON(candidates)
	}
	if len(candidates) == 0 {
		outputHuman("No similar keywords found\n")
		return nil
	}
	for i, c := range candidates {
		outputHuman("%3d. %-50s %.4f  volume %.0f\n", i+1, c.Record.Keyword, c.SimilarityScore, c.Record.Volume)
	}
	return nil
}
