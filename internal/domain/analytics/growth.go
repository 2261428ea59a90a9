// Package analytics turns a keyword's monthly volume series and ad metrics
// into derived analytics. Every function is pure and returns nil rather than
// NaN or Inf when a value cannot be computed.
package analytics

import (
	"math"
	"sort"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

const (
	// threeMonthPoints is the latest period plus the period three steps back.
	threeMonthPoints = 4
	// yoyPoints is the latest period plus the same period a year earlier.
	yoyPoints = 13
	// trailingWindow is the number of periods averaged into a keyword's volume.
	trailingWindow = 12
)

// SortedVolumes returns the series volumes ordered by period. The input is
// not modified.
func SortedVolumes(series []entities.MonthlyVolume) []float64 {
	points := series
	if !sort.SliceIsSorted(series, func(i, j int) bool { return series[i].Period < series[j].Period }) {
		points = append([]entities.MonthlyVolume(nil), series...)
		sort.SliceStable(points, func(i, j int) bool { return points[i].Period < points[j].Period })
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = float64(p.Volume)
	}
	return values
}

// ThreeMonthGrowth compares the latest period with the one three steps back.
// Returns nil for fewer than four points or a zero base.
func ThreeMonthGrowth(series []entities.MonthlyVolume) *float64 {
	return threeMonthGrowth(SortedVolumes(series))
}

func threeMonthGrowth(v []float64) *float64 {
	n := len(v)
	if n < threeMonthPoints {
		return nil
	}
	base := v[n-threeMonthPoints]
	if base == 0 {
		return nil
	}
	return finite((v[n-1] - base) / base * 100)
}

// YoYGrowth compares the latest period with the same period a year earlier.
// The denominator is smoothed by one so a zero base stays finite. Returns nil
// for fewer than thirteen points.
func YoYGrowth(series []entities.MonthlyVolume) *float64 {
	return yoyGrowth(SortedVolumes(series))
}

func yoyGrowth(v []float64) *float64 {
	n := len(v)
	if n < yoyPoints {
		return nil
	}
	base := v[n-yoyPoints]
	return finite((v[n-1] - base) / (base + 1) * 100)
}

// Volatility is the population standard deviation of month-over-month
// fractional changes, each smoothed by one in the denominator. A flat series
// has zero volatility. Returns nil for fewer than two points.
func Volatility(series []entities.MonthlyVolume) *float64 {
	return volatility(SortedVolumes(series))
}

func volatility(v []float64) *float64 {
	if len(v) < 2 {
		return nil
	}

	changes := make([]float64, 0, len(v)-1)
	var sum float64
	for i := 1; i < len(v); i++ {
		c := (v[i] - v[i-1]) / (v[i-1] + 1)
		changes = append(changes, c)
		sum += c
	}
	mean := sum / float64(len(changes))

	var variance float64
	for _, c := range changes {
		d := c - mean
		variance += d * d
	}
	variance /= float64(len(changes))

	return finite(math.Sqrt(variance))
}

// TrailingVolume averages the last twelve periods, or all of them when the
// series is shorter. An empty series has zero volume.
func TrailingVolume(series []entities.MonthlyVolume) float64 {
	return trailingVolume(SortedVolumes(series))
}

func trailingVolume(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	if len(v) > trailingWindow {
		v = v[len(v)-trailingWindow:]
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
