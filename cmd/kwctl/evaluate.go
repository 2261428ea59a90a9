package main

import (
	"github.com/spf13/cobra"

	"github.com/zatekoja/keywordscout/internal/evaluation"
)

var (
	evaluateK         int
	evaluateMinRecall float64
	evaluateMinMRR    float64
)

func init() {
	evaluateCmd.Flags().IntVar(&evaluateK, "k", evaluation.DefaultK, "Cut-off for recall and MRR")
	evaluateCmd.Flags().Float64Var(&evaluateMinRecall, "min-recall", 0, "Fail when average recall@k is lower")
	evaluateCmd.Flags().Float64Var(&evaluateMinMRR, "min-mrr", 0, "Fail when average MRR@k is lower")
	rootCmd.AddCommand(evaluateCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <golden-pitches.json>",
	Short: "Score discovery quality against labeled pitches",
	Long: `Score discovery quality against labeled pitches.

The file holds a JSON array of {id, pitch, category, expected_keywords,
difficulty}. Each pitch is discovered with no filters and scored by
recall@k and MRR@k over its expected keywords.

Examples:
  kwctl evaluate testdata/golden_pitches.json
  kwctl evaluate golden.json --k 20 --min-recall 0.4`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	pitches, err := evaluation.LoadGoldenPitches(args[0])
	if err != nil {
		exitWithError("%v", err)
	}
	if err := evaluation.ValidateGoldenPitches(pitches); err != nil {
		exitWithError("invalid golden pitches: %v", err)
	}

	ctx := cmd.Context()
	p := mustLoadPipeline(ctx)
	defer p.Close()

	summary, err := evaluation.NewRunner(p.research, evaluateK).Run(ctx, pitches)
	if err != nil {
		exitWithError("evaluation failed: %v", err)
	}

	if humanOutput {
		outputHuman("%d pitches, %d failed, %d with a hit\n", summary.TotalPitches, summary.Failed, summary.PitchesWithHit)
		outputHuman("recall@%d %.3f  mrr@%d %.3f  avg latency %s\n",
			summary.K, summary.AvgRecallAtK, summary.K, summary.AvgMRRAtK, summary.AvgLatency)
		for name, c := range summary.ByCategory {
			outputHuman("  %-20s n=%-4d recall %.3f  mrr %.3f\n", name, c.Count, c.AvgRecallAtK, c.AvgMRRAtK)
		}
	} else if err := outputJSON(summary); err != nil {
		return err
	}

	guard := evaluation.NewGuardrails(evaluation.GuardrailConfig{
		MinRecallAtK:   evaluateMinRecall,
		MinMRRAtK:      evaluateMinMRR,
		MaxFailureRate: 1,
	})
	if err := guard.Check(summary); err != nil {
		exitWithError("quality below threshold: %v", err)
	}
	return nil
}
