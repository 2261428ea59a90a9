package evaluation

import "fmt"

// GuardrailConfig sets the minimum quality an evaluation must reach
type GuardrailConfig struct {
	MinRecallAtK   float64
	MinMRRAtK      float64
	MaxFailureRate float64
}

type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	if config.MaxFailureRate <= 0 {
		config.MaxFailureRate = 0.1
	}
	return &Guardrails{config: config}
}

// Check returns an error naming the first threshold the summary misses
func (g *Guardrails) Check(s *EvalSummary) error {
	if s == nil || s.TotalPitches == 0 {
		return fmt.Errorf("evaluation ran no pitches")
	}
	if rate := float64(s.Failed) / float64(s.TotalPitches); rate > g.config.MaxFailureRate {
		return fmt.Errorf("failure rate %.2f above %.2f", rate, g.config.MaxFailureRate)
	}
	if s.AvgRecallAtK < g.config.MinRecallAtK {
		return fmt.Errorf("recall@%d %.3f below %.3f", s.K, s.AvgRecallAtK, g.config.MinRecallAtK)
	}
	if s.AvgMRRAtK < g.config.MinMRRAtK {
		return fmt.Errorf("mrr@%d %.3f below %.3f", s.K, s.AvgMRRAtK, g.config.MinMRRAtK)
	}
	return nil
}
