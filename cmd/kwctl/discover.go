package main

import (
	"github.com/spf13/cobra"

	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

var (
	discoverTarget  int
	discoverPool    int
	discoverFilters []string
	discoverExclude []string
)

func init() {
	discoverCmd.Flags().IntVar(&discoverTarget, "target", 0, "Keywords to return (default from pipeline config)")
	discoverCmd.Flags().IntVar(&discoverPool, "pool", 0, "Candidate pool size (default from pipeline config)")
	discoverCmd.Flags().StringArrayVar(&discoverFilters, "filter", nil, `Metric filter such as "volume>=1000" (repeatable)`)
	discoverCmd.Flags().StringArrayVar(&discoverExclude, "exclude", nil, "Keyword already shown, for load-more (repeatable)")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover <pitch>",
	Short: "Filter and rank the keywords most similar to a pitch",
	Long: `Filter and rank the keywords most similar to a pitch.

Filters compare a metric against a number with >, >=, <, <= or =.
Raw metrics: volume, competition, cpc, topPageBid, growth3m, growthYoy,
similarityScore. Processed metrics: volatility, trendStrength,
bidEfficiency, tac, sac, opportunityScore.

Examples:
  kwctl discover "dog walking app"
  kwctl discover "dog walking app" --filter "volume>=1000" --filter "cpc<3"
  kwctl discover "dog walking app" --exclude "dog walker" --target 20`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(discoverFilters)
	if err != nil {
		exitWithError("%v", err)
	}

	ctx := cmd.Context()
	p := mustLoadPipeline(ctx)
	defer p.Close()

	result, err := p.research.Discover(ctx, services.DiscoverRequest{
		Pitch:       args[0],
		Filters:     filters,
		Exclude:     discoverExclude,
		TargetCount: discoverTarget,
		PoolSize:    discoverPool,
	})
	if err != nil {
		exitWithError("discovering keywords: %v", err)
	}

	if !humanOutput {
		return outputJSON(result)
	}
	if len(result.Keywords) == 0 {
		outputHuman("No keywords found (%s)\n", result.Reason)
		return nil
	}
	printKeywords(result.Keywords)
	return nil
}

func printKeywords(keywords []entities.EnrichedKeyword) {
	outputHuman("%-4s %-45s %10s %7s %6s %9s %11s\n", "#", "keyword", "volume", "cpc", "comp", "yoy", "opportunity")
	for i, kw := range keywords {
		outputHuman("%-4d %-45s %10.0f %7.2f %6.0f %9s %11s\n",
			i+1, kw.Keyword, kw.Volume, kw.CPC, kw.Competition,
			formatOptional(kw.GrowthYoY, "%"), formatOptional(kw.Metrics.OpportunityScore, ""))
	}
}
