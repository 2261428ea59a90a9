package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

func TestEngine_FlatSeries(t *testing.T) {
	engine := NewEngine()

	for _, keyword := range []string{"a", "b", "c"} {
		record := &entities.KeywordRecord{
			Keyword:        keyword,
			Series:         series(100, 100, 100, 100),
			Competition:    40,
			CPC:            1.2,
			TopPageBidHigh: 2.4,
		}
		engine.Precompute(record)

		require.NotNil(t, record.Growth3M)
		assert.Equal(t, 0.0, *record.Growth3M)
		assert.Equal(t, 100.0, record.Volume)

		m := engine.Compute(record)
		require.NotNil(t, m.Volatility)
		assert.Equal(t, 0.0, *m.Volatility)
		// flat history leaves yoy unknown, so no trend either
		assert.Nil(t, m.TrendStrength)
	}
}

func TestEngine_ZeroVolatilityMaximisesTrend(t *testing.T) {
	engine := NewEngine()
	flat := &entities.KeywordRecord{Keyword: "flat", Series: series(100, 100, 100, 100), GrowthYoY: ptr(30)}
	spiky := &entities.KeywordRecord{Keyword: "spiky", Series: series(100, 10, 100, 10), GrowthYoY: ptr(30)}

	flatTrend := engine.Compute(flat).TrendStrength
	spikyTrend := engine.Compute(spiky).TrendStrength
	require.NotNil(t, flatTrend)
	require.NotNil(t, spikyTrend)
	assert.Greater(t, *flatTrend, *spikyTrend)
	assert.InDelta(t, 0.3, *flatTrend, 1e-9)
}

func TestEngine_Compute(t *testing.T) {
	engine := NewEngine()
	record := &entities.KeywordRecord{
		Keyword:        "standing desk",
		Series:         series(80, 90, 100, 100, 110, 120, 120, 130, 140, 150, 150, 160, 200),
		Competition:    60,
		CPC:            2,
		TopPageBidHigh: 5,
	}
	engine.Precompute(record)

	require.NotNil(t, record.GrowthYoY)
	assert.InDelta(t, (200.0-80)/81*100, *record.GrowthYoY, 1e-9)

	m := engine.Compute(record)
	require.NotNil(t, m.TAC)
	require.NotNil(t, m.SAC)
	require.NotNil(t, m.BidEfficiency)
	require.NotNil(t, m.OpportunityScore)
	assert.InDelta(t, record.Volume*2, *m.TAC, 1e-9)
	assert.InDelta(t, record.Volume*2*0.4, *m.SAC, 1e-9)
	assert.Equal(t, 2.5, *m.BidEfficiency)
	assert.Greater(t, *m.OpportunityScore, 0.0)
}

func TestEngine_ComputeNilRecord(t *testing.T) {
	assert.Equal(t, entities.KeywordMetrics{}, NewEngine().Compute(nil))
}
