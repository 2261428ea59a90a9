package analytics

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

func series(volumes ...int64) []entities.MonthlyVolume {
	out := make([]entities.MonthlyVolume, len(volumes))
	for i, v := range volumes {
		out[i] = entities.MonthlyVolume{
			Period: fmt.Sprintf("%04d_%02d", 2021+i/12, i%12+1),
			Volume: v,
		}
	}
	return out
}

func TestShortSeries_YieldNoGrowthMetrics(t *testing.T) {
	for _, s := range [][]entities.MonthlyVolume{nil, series(), series(500)} {
		assert.Nil(t, ThreeMonthGrowth(s))
		assert.Nil(t, YoYGrowth(s))
		assert.Nil(t, Volatility(s))
	}
}

func TestThreeMonthGrowth(t *testing.T) {
	assert.Nil(t, ThreeMonthGrowth(series(100, 120, 150)), "three points are not enough")

	growth := ThreeMonthGrowth(series(100, 120, 150, 200))
	require.NotNil(t, growth)
	assert.InDelta(t, 100.0, *growth, 1e-9)

	flat := ThreeMonthGrowth(series(100, 100, 100, 100))
	require.NotNil(t, flat)
	assert.Equal(t, 0.0, *flat)
}

func TestThreeMonthGrowth_ZeroBase(t *testing.T) {
	assert.Nil(t, ThreeMonthGrowth(series(0, 50, 80, 120)))
	assert.Nil(t, ThreeMonthGrowth(series(900, 0, 10, 20, 40)))
}

func TestThreeMonthGrowth_SortsByPeriod(t *testing.T) {
	s := []entities.MonthlyVolume{
		{Period: "2024_04", Volume: 200},
		{Period: "2024_01", Volume: 100},
		{Period: "2024_03", Volume: 150},
		{Period: "2024_02", Volume: 120},
	}

	growth := ThreeMonthGrowth(s)
	require.NotNil(t, growth)
	assert.InDelta(t, 100.0, *growth, 1e-9)
	assert.Equal(t, "2024_04", s[0].Period, "input must not be reordered")
}

func TestYoYGrowth(t *testing.T) {
	assert.Nil(t, YoYGrowth(series(10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10)), "twelve points are not enough")

	growth := YoYGrowth(series(99, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 199))
	require.NotNil(t, growth)
	assert.InDelta(t, 100.0, *growth, 1e-9)
}

func TestYoYGrowth_ZeroBaseStaysFinite(t *testing.T) {
	growth := YoYGrowth(series(0, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 40))
	require.NotNil(t, growth)
	assert.False(t, math.IsInf(*growth, 0))
	assert.InDelta(t, 4000.0, *growth, 1e-9)
}

func TestVolatility(t *testing.T) {
	flat := Volatility(series(100, 100, 100, 100))
	require.NotNil(t, flat)
	assert.Equal(t, 0.0, *flat)

	two := Volatility(series(0, 300))
	require.NotNil(t, two)
	assert.Equal(t, 0.0, *two, "a single change has no spread")

	spiky := Volatility(series(0, 99, 0, 99))
	steady := Volatility(series(100, 110, 121, 133))
	require.NotNil(t, spiky)
	require.NotNil(t, steady)
	assert.Greater(t, *spiky, *steady)
}

func TestTrailingVolume(t *testing.T) {
	assert.Equal(t, 0.0, TrailingVolume(nil))
	assert.Equal(t, 200.0, TrailingVolume(series(100, 300)))

	long := series(1000, 1000, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12)
	assert.Equal(t, 12.0, TrailingVolume(long))
}
