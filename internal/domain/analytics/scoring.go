package analytics

import (
	"math"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

const (
	// minTrendFactor keeps a collapsing trend from zeroing out scale entirely.
	minTrendFactor = 0.1
)

// TrendStrength rewards steady growth over spiky growth. Growth is divided by
// (1+volatility) when positive and multiplied by it when negative, so
// volatility always pushes the score down. A nil volatility counts as zero.
// Returns nil when yoy growth is unknown.
func TrendStrength(yoyGrowth, volatility *float64) *float64 {
	if yoyGrowth == nil {
		return nil
	}
	g := *yoyGrowth / 100
	v := 0.0
	if volatility != nil && *volatility > 0 {
		v = *volatility
	}
	if g >= 0 {
		return finite(g / (1 + v))
	}
	return finite(g * (1 + v))
}

// BidEfficiency is the top-of-page bid relative to CPC. Returns nil when CPC
// is zero or negative.
func BidEfficiency(topPageBid, cpc float64) *float64 {
	if cpc <= 0 {
		return nil
	}
	return finite(topPageBid / cpc)
}

// TotalAdCost estimates monthly ad spend across all advertisers.
func TotalAdCost(volume, cpc float64) float64 {
	return nonNegative(volume * cpc)
}

// SellerAdCost is the total ad cost net of competitive saturation.
// Competition is clamped to [0,100].
func SellerAdCost(tac, competition float64) float64 {
	c := math.Min(math.Max(competition, 0), 100)
	return nonNegative(tac * (1 - c/100))
}

// OpportunityScore blends scale, growth quality and advertiser economics:
// ln(1+SAC) x trend factor x bid factor. Missing components fall back to a
// neutral factor of one and the result is never negative or non-finite.
func OpportunityScore(volume, competition, cpc, topPageBid float64, growthYoY *float64, series []entities.MonthlyVolume) float64 {
	return opportunityScore(volume, competition, cpc, topPageBid, growthYoY, Volatility(series))
}

func opportunityScore(volume, competition, cpc, topPageBid float64, growthYoY, vol *float64) float64 {
	sac := SellerAdCost(TotalAdCost(volume, cpc), competition)
	scale := math.Log1p(sac)

	trendFactor := 1.0
	if trend := TrendStrength(growthYoY, vol); trend != nil {
		trendFactor = math.Max(1+*trend, minTrendFactor)
	}

	bidFactor := 1.0
	if eff := BidEfficiency(topPageBid, cpc); eff != nil && *eff > 0 {
		bidFactor = *eff
	}

	return nonNegative(scale * trendFactor * bidFactor)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
