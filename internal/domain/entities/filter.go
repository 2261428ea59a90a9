package entities

import (
	"fmt"
	"math"
)

// Metric names a filterable keyword metric.
type Metric string

const (
	MetricVolume          Metric = "volume"
	MetricCompetition     Metric = "competition"
	MetricCPC             Metric = "cpc"
	MetricTopPageBid      Metric = "topPageBid"
	MetricGrowth3M        Metric = "growth3m"
	MetricGrowthYoY       Metric = "growthYoy"
	MetricSimilarityScore Metric = "similarityScore"

	MetricVolatility       Metric = "volatility"
	MetricTrendStrength    Metric = "trendStrength"
	MetricBidEfficiency    Metric = "bidEfficiency"
	MetricTAC              Metric = "tac"
	MetricSAC              Metric = "sac"
	MetricOpportunityScore Metric = "opportunityScore"
)

// MetricKind tells whether a metric can be read from corpus fields or needs
// the metrics engine.
type MetricKind int

const (
	MetricKindUnknown MetricKind = iota
	MetricKindRaw
	MetricKindProcessed
)

// String returns the kind name
func (k MetricKind) String() string {
	switch k {
	case MetricKindRaw:
		return "raw"
	case MetricKindProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// Kind classifies the metric. Adding a Metric constant without listing it
// here leaves it unknown, which the filter engine treats as always passing.
func (m Metric) Kind() MetricKind {
	switch m {
	case MetricVolume, MetricCompetition, MetricCPC, MetricTopPageBid,
		MetricGrowth3M, MetricGrowthYoY, MetricSimilarityScore:
		return MetricKindRaw
	case MetricVolatility, MetricTrendStrength, MetricBidEfficiency,
		MetricTAC, MetricSAC, MetricOpportunityScore:
		return MetricKindProcessed
	default:
		return MetricKindUnknown
	}
}

// Operator is a numeric comparison operator.
type Operator string

const (
	OperatorGreater      Operator = ">"
	OperatorGreaterEqual Operator = ">="
	OperatorLess         Operator = "<"
	OperatorLessEqual    Operator = "<="
	OperatorEqual        Operator = "="
)

// EqualityEpsilon is the tolerance used by the "=" operator.
const EqualityEpsilon = 1e-6

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	switch o {
	case OperatorGreater, OperatorGreaterEqual, OperatorLess, OperatorLessEqual, OperatorEqual:
		return true
	}
	return false
}

// Compare evaluates "value <op> threshold".
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case OperatorGreater:
		return value > threshold
	case OperatorGreaterEqual:
		return value >= threshold
	case OperatorLess:
		return value < threshold
	case OperatorLessEqual:
		return value <= threshold
	case OperatorEqual:
		return math.Abs(value-threshold) <= EqualityEpsilon
	}
	return false
}

// Filter is a single numeric predicate on a keyword metric.
type Filter struct {
	Metric   Metric   `json:"metric"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// Validate checks the operator and threshold. Unknown metrics are allowed.
func (f Filter) Validate() error {
	if !f.Operator.Valid() {
		return fmt.Errorf("unsupported operator %q for metric %q", f.Operator, f.Metric)
	}
	if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return fmt.Errorf("threshold for metric %q must be a finite number", f.Metric)
	}
	return nil
}

// RawValue reads a raw metric from the candidate. ok is false for metrics
// that are not raw.
func (c SimilarityCandidate) RawValue(m Metric) (value *float64, ok bool) {
	r := c.Record
	switch m {
	case MetricVolume:
		return &r.Volume, true
	case MetricCompetition:
		return &r.Competition, true
	case MetricCPC:
		return &r.CPC, true
	case MetricTopPageBid:
		return &r.TopPageBidHigh, true
	case MetricGrowth3M:
		return r.Growth3M, true
	case MetricGrowthYoY:
		return r.GrowthYoY, true
	case MetricSimilarityScore:
		score := c.SimilarityScore
		return &score, true
	}
	return nil, false
}

// Value reads a processed metric. ok is false for metrics that are not
// processed.
func (m KeywordMetrics) Value(metric Metric) (value *float64, ok bool) {
	switch metric {
	case MetricVolatility:
		return m.Volatility, true
	case MetricTrendStrength:
		return m.TrendStrength, true
	case MetricBidEfficiency:
		return m.BidEfficiency, true
	case MetricTAC:
		return m.TAC, true
	case MetricSAC:
		return m.SAC, true
	case MetricOpportunityScore:
		return m.OpportunityScore, true
	}
	return nil, false
}
