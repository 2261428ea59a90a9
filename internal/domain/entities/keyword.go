package entities

import (
	"strings"
)

// ReasonNoMoreMatches is reported when a selection comes back empty.
const ReasonNoMoreMatches = "no more matches"

// MonthlyVolume is one period of a keyword's search-volume history.
// Period uses the corpus column format YYYY_MM, which sorts chronologically.
type MonthlyVolume struct {
	Period string `json:"period"`
	Volume int64  `json:"volume"`
}

// KeywordRecord is a corpus-resident keyword. Records are built once at load
// time and never mutated afterwards.
type KeywordRecord struct {
	Keyword        string          `json:"keyword"`
	Series         []MonthlyVolume `json:"series"`
	Competition    float64         `json:"competition"`
	CPC            float64         `json:"cpc"`
	TopPageBidLow  float64         `json:"top_page_bid_low"`
	TopPageBidHigh float64         `json:"top_page_bid_high"`

	// Precomputed at load time from Series.
	Volume    float64  `json:"volume"`
	Growth3M  *float64 `json:"growth_3m,omitempty"`
	GrowthYoY *float64 `json:"growth_yoy,omitempty"`
}

// Volumes returns the series volumes in period order.
func (r *KeywordRecord) Volumes() []float64 {
	values := make([]float64, len(r.Series))
	for i, point := range r.Series {
		values[i] = float64(point.Volume)
	}
	return values
}

// KeywordMetrics holds derived analytics for one keyword. A nil field means
// the metric could not be computed from the available data.
type KeywordMetrics struct {
	Volatility       *float64 `json:"volatility,omitempty"`
	TrendStrength    *float64 `json:"trend_strength,omitempty"`
	BidEfficiency    *float64 `json:"bid_efficiency,omitempty"`
	TAC              *float64 `json:"tac,omitempty"`
	SAC              *float64 `json:"sac,omitempty"`
	OpportunityScore *float64 `json:"opportunity_score,omitempty"`
}

// SimilarityCandidate is a corpus record scored against one query text.
type SimilarityCandidate struct {
	Record          *KeywordRecord `json:"record"`
	SimilarityScore float64        `json:"similarity_score"`
}

// EnrichedKeyword is a selected keyword with its similarity score and derived
// metrics attached.
type EnrichedKeyword struct {
	*KeywordRecord
	SimilarityScore float64        `json:"similarity_score"`
	Metrics         KeywordMetrics `json:"metrics"`
}

// SelectionResult is the output of a filter-and-rank pass. Reason is set when
// Keywords is empty so callers can tell "nothing found" from a failure.
type SelectionResult struct {
	Keywords []EnrichedKeyword `json:"keywords"`
	Reason   string            `json:"reason,omitempty"`
}

// Competition levels used when the corpus stores categorical competition.
const (
	CompetitionLow    = 25.0
	CompetitionMedium = 50.0
	CompetitionHigh   = 75.0
)

// CompetitionFromLabel maps LOW/MEDIUM/HIGH to a 0-100 index.
func CompetitionFromLabel(label string) (float64, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "LOW":
		return CompetitionLow, true
	case "MEDIUM":
		return CompetitionMedium, true
	case "HIGH":
		return CompetitionHigh, true
	}
	return 0, false
}
