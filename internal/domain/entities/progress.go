package entities

import (
	"time"
)

// GenerationStage is a step of a keyword collection run.
type GenerationStage string

const (
	StageGeneratingSeeds    GenerationStage = "generating-seeds"
	StageGeneratingKeywords GenerationStage = "generating-keywords"
	StageFetchingMetrics    GenerationStage = "fetching-metrics"
	StageComputingMetrics   GenerationStage = "computing-metrics"
	StageGeneratingReport   GenerationStage = "generating-report"
	StageComplete           GenerationStage = "complete"
	StageError              GenerationStage = "error"
)

// IsTerminal reports whether no further transitions may follow.
func (s GenerationStage) IsTerminal() bool {
	return s == StageComplete || s == StageError
}

// GenerationProgress is a resumable checkpoint of a collection run. Every
// snapshot carries enough state to resume exactly where it stopped.
type GenerationProgress struct {
	RunID             string          `json:"run_id"`
	Stage             GenerationStage `json:"stage"`
	SeedsGenerated    int             `json:"seeds_generated"`
	SeedsProcessed    int             `json:"seeds_processed"`
	KeywordsGenerated int             `json:"keywords_generated"`
	DuplicatesFound   int             `json:"duplicates_found"`
	ExistingFound     int             `json:"existing_found"`
	NewCollected      int             `json:"new_collected"`
	Seeds             []string        `json:"seeds"`
	Keywords          []string        `json:"keywords"`
	NewKeywords       []string        `json:"new_keywords"`
	Error             string          `json:"error,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (p *GenerationProgress) Clone() *GenerationProgress {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Seeds = append([]string(nil), p.Seeds...)
	cp.Keywords = append([]string(nil), p.Keywords...)
	cp.NewKeywords = append([]string(nil), p.NewKeywords...)
	return &cp
}
