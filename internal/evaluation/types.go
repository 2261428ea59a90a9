package evaluation

import "time"

// GoldenPitch is a labeled product pitch with the keywords a good discovery
// run is expected to surface.
type GoldenPitch struct {
	ID               string   `json:"id"`
	Pitch            string   `json:"pitch"`
	Category         string   `json:"category"`
	ExpectedKeywords []string `json:"expected_keywords"`
	Difficulty       string   `json:"difficulty"` // easy, medium, hard
}

// EvalResult holds the evaluation outcome for a single pitch.
type EvalResult struct {
	PitchID     string
	Pitch       string
	Category    string
	RecallAtK   float64
	MRRAtK      float64
	ResultCount int
	Retrieved   []string
	Latency     time.Duration
	Err         string `json:",omitempty"`
}

// EvalSummary holds aggregate metrics across all golden pitches.
type EvalSummary struct {
	K              int
	TotalPitches   int
	Failed         int
	AvgRecallAtK   float64
	AvgMRRAtK      float64
	AvgLatency     time.Duration
	PitchesWithHit int // pitches where at least one expected keyword was found
	ByCategory     map[string]*CategorySummary
	Results        []EvalResult
}

// CategorySummary holds metrics grouped by pitch category.
type CategorySummary struct {
	Count        int
	AvgRecallAtK float64
	AvgMRRAtK    float64
}
