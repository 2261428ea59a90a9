package analytics

import (
	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

// Engine computes derived metrics for corpus records.
type Engine struct{}

// NewEngine creates a new metrics engine
func NewEngine() *Engine {
	return &Engine{}
}

// Compute derives every processed metric for the record.
func (e *Engine) Compute(record *entities.KeywordRecord) entities.KeywordMetrics {
	if record == nil {
		return entities.KeywordMetrics{}
	}

	v := SortedVolumes(record.Series)
	vol := volatility(v)

	growthYoY := record.GrowthYoY
	if growthYoY == nil {
		growthYoY = yoyGrowth(v)
	}

	tac := TotalAdCost(record.Volume, record.CPC)
	sac := SellerAdCost(tac, record.Competition)
	score := opportunityScore(record.Volume, record.Competition, record.CPC, record.TopPageBidHigh, growthYoY, vol)

	return entities.KeywordMetrics{
		Volatility:       vol,
		TrendStrength:    TrendStrength(growthYoY, vol),
		BidEfficiency:    BidEfficiency(record.TopPageBidHigh, record.CPC),
		TAC:              &tac,
		SAC:              &sac,
		OpportunityScore: &score,
	}
}

// Precompute fills the raw derived fields stored on a record at load time.
func (e *Engine) Precompute(record *entities.KeywordRecord) {
	v := SortedVolumes(record.Series)
	record.Volume = trailingVolume(v)
	record.Growth3M = threeMonthGrowth(v)
	record.GrowthYoY = yoyGrowth(v)
}
