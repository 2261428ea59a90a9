package entities

import (
	"time"
)

// StoredKeywordMetrics is the persisted form of a scored keyword.
type StoredKeywordMetrics struct {
	RunID            string    `json:"run_id" db:"run_id"`
	Keyword          string    `json:"keyword" db:"keyword"`
	Volume           float64   `json:"volume" db:"volume"`
	Competition      float64   `json:"competition" db:"competition"`
	CPC              float64   `json:"cpc" db:"cpc"`
	TopPageBid       float64   `json:"top_page_bid" db:"top_page_bid"`
	Growth3M         *float64  `json:"growth_3m,omitempty" db:"growth_3m"`
	GrowthYoY        *float64  `json:"growth_yoy,omitempty" db:"growth_yoy"`
	SimilarityScore  float64   `json:"similarity_score" db:"similarity_score"`
	Volatility       *float64  `json:"volatility,omitempty" db:"volatility"`
	TrendStrength    *float64  `json:"trend_strength,omitempty" db:"trend_strength"`
	BidEfficiency    *float64  `json:"bid_efficiency,omitempty" db:"bid_efficiency"`
	TAC              *float64  `json:"tac,omitempty" db:"tac"`
	SAC              *float64  `json:"sac,omitempty" db:"sac"`
	OpportunityScore *float64  `json:"opportunity_score,omitempty" db:"opportunity_score"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// KeywordSearchHit is one lexical search result from the keyword index.
type KeywordSearchHit struct {
	Keyword          string  `json:"keyword"`
	Volume           float64 `json:"volume"`
	Competition      float64 `json:"competition"`
	CPC              float64 `json:"cpc"`
	GrowthYoY        float64 `json:"growth_yoy"`
	OpportunityScore float64 `json:"opportunity_score"`
	TextMatch        int64   `json:"text_match"`
}
