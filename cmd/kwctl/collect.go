package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

var (
	collectTarget     int
	collectFilters    []string
	collectTopics     []string
	collectPersonas   []string
	collectPainPoints []string
	collectFeatures   []string
	collectQuiet      bool
)

func init() {
	collectCmd.Flags().IntVar(&collectTarget, "target", 100, "Keywords to collect before stopping")
	collectCmd.Flags().StringArrayVar(&collectFilters, "filter", nil, `Metric filter such as "volume>=1000" (repeatable)`)
	collectCmd.Flags().StringArrayVar(&collectTopics, "topic", nil, "Topic of the idea (repeatable)")
	collectCmd.Flags().StringArrayVar(&collectPersonas, "persona", nil, "Target persona (repeatable)")
	collectCmd.Flags().StringArrayVar(&collectPainPoints, "pain-point", nil, "Pain point the idea solves (repeatable)")
	collectCmd.Flags().StringArrayVar(&collectFeatures, "feature", nil, "Product feature (repeatable)")
	collectCmd.Flags().BoolVar(&collectQuiet, "quiet", false, "Do not print progress to stderr")
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect <pitch>",
	Short: "Run the full research pipeline for an idea",
	Long: `Run the full research pipeline for an idea.

Seed queries are generated from the pitch and the optional topics,
personas, pain points and features. Each seed is searched and filtered
until the target count is reached, then metrics and a summary report are
computed. Progress is printed to stderr while the run is active.

Examples:
  kwctl collect "dog walking app" --topic pets --persona "busy professionals"
  kwctl collect "dog walking app" --target 200 --filter "volume>=500" --human`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func runCollect(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(collectFilters)
	if err != nil {
		exitWithError("%v", err)
	}

	ctx := cmd.Context()
	p := mustLoadPipeline(ctx)
	defer p.Close()

	runID := uuid.NewString()
	updates, err := p.bus.Subscribe(ctx, runID)
	if err != nil {
		exitWithError("subscribing to progress: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for progress := range updates {
			if !collectQuiet {
				printProgress(progress)
			}
			if progress.Stage.IsTerminal() {
				return
			}
		}
	}()

	report, err := p.research.Run(ctx, services.ResearchRequest{
		RunID: runID,
		Input: entities.IdeaInput{
			Pitch:      args[0],
			Topics:     collectTopics,
			Personas:   collectPersonas,
			PainPoints: collectPainPoints,
			Features:   collectFeatures,
		},
		TargetCount: collectTarget,
		Filters:     filters,
	}, nil)
	_ = p.bus.Close()
	<-done
	if err != nil {
		exitWithError("research run %s failed: %v", runID, err)
	}

	if !humanOutput {
		return outputJSON(report)
	}

	s := report.Summary
	outputHuman("Run %s: %d keywords\n", report.RunID, s.KeywordCount)
	outputHuman("Total volume %.0f, average CPC %.2f, average competition %.2f, median YoY %s\n",
		s.TotalVolume, s.AverageCPC, s.AverageCompetition, formatOptional(s.MedianYoYGrowth, "%"))
	outputHuman("Rising %d, declining %d\n\n", s.RisingCount, s.DecliningCount)
	printKeywords(report.Keywords)
	return nil
}

func printProgress(p *entities.GenerationProgress) {
	fmt.Fprintf(os.Stderr, "[%s] seeds %d/%d, collected %d, duplicates %d\n",
		p.Stage, p.SeedsProcessed, p.SeedsGenerated, p.NewCollected, p.DuplicatesFound)
}
