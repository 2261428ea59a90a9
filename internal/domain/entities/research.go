package entities

import (
	"time"
)

// IdeaInput is the structured product idea a research run starts from.
type IdeaInput struct {
	Pitch      string   `json:"pitch"`
	Topics     []string `json:"topics,omitempty"`
	Personas   []string `json:"personas,omitempty"`
	PainPoints []string `json:"pain_points,omitempty"`
	Features   []string `json:"features,omitempty"`
}

// ResearchEvent records one discovery or research call for analytics.
type ResearchEvent struct {
	ID          string    `json:"id" db:"id"`
	Pitch       string    `json:"pitch" db:"pitch"`
	Kind        string    `json:"kind" db:"kind"`
	ResultCount int       `json:"result_count" db:"result_count"`
	LatencyMs   int       `json:"latency_ms" db:"latency_ms"`
	Reason      string    `json:"reason,omitempty" db:"reason"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// KeywordScore pairs a keyword with its similarity to a pitch.
type KeywordScore struct {
	Keyword         string  `json:"keyword"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ResearchSummary aggregates the keywords of a research report.
type ResearchSummary struct {
	KeywordCount       int      `json:"keyword_count"`
	TotalVolume        float64  `json:"total_volume"`
	AverageCPC         float64  `json:"average_cpc"`
	AverageCompetition float64  `json:"average_competition"`
	MedianYoYGrowth    *float64 `json:"median_yoy_growth,omitempty"`
	RisingCount        int      `json:"rising_count"`
	DecliningCount     int      `json:"declining_count"`
	TopOpportunities   []string `json:"top_opportunities"`
}

// ResearchReport is the final output of a full research run.
type ResearchReport struct {
	RunID       string            `json:"run_id"`
	Pitch       string            `json:"pitch"`
	Keywords    []EnrichedKeyword `json:"keywords"`
	Summary     ResearchSummary   `json:"summary"`
	GeneratedAt time.Time         `json:"generated_at"`
}
