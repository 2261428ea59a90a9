package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardrails_Check(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{MinRecallAtK: 0.5, MinMRRAtK: 0.3})

	assert.NoError(t, g.Check(&EvalSummary{K: 10, TotalPitches: 10, AvgRecallAtK: 0.6, AvgMRRAtK: 0.4}))
	assert.ErrorContains(t, g.Check(&EvalSummary{K: 10, TotalPitches: 10, AvgRecallAtK: 0.4, AvgMRRAtK: 0.4}), "recall@10")
	assert.ErrorContains(t, g.Check(&EvalSummary{K: 10, TotalPitches: 10, AvgRecallAtK: 0.6, AvgMRRAtK: 0.2}), "mrr@10")
}

func TestGuardrails_FailureRate(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{})

	assert.NoError(t, g.Check(&EvalSummary{TotalPitches: 10, Failed: 1}))
	assert.ErrorContains(t, g.Check(&EvalSummary{TotalPitches: 10, Failed: 2}), "failure rate")
	assert.Error(t, g.Check(&EvalSummary{}))
	assert.Error(t, g.Check(nil))
}
