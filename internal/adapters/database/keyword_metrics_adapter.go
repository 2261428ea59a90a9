package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

const keywordMetricsTable = "keyword_metrics"

var keywordMetricsColumns = []interface{}{
	"run_id", "keyword", "volume", "competition", "cpc", "top_page_bid",
	"growth_3m", "growth_yoy", "similarity_score",
	"volatility", "trend_strength", "bid_efficiency", "tac", "sac", "opportunity_score",
	"updated_at",
}

// KeywordMetricsAdapter implements KeywordMetricsRepository
type KeywordMetricsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	now    func() time.Time
}

// NewKeywordMetricsAdapter creates a new keyword metrics adapter
func NewKeywordMetricsAdapter(client *postgres.Client) repositories.KeywordMetricsRepository {
	return &KeywordMetricsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		now:    time.Now,
	}
}

// UpsertBatch writes one batch of keywords in a single statement
func (a *KeywordMetricsAdapter) UpsertBatch(ctx context.Context, runID string, keywords []entities.EnrichedKeyword) error {
	if runID == "" {
		return apperrors.NewValidationError("run id is required")
	}

	now := a.now()
	rows := make([]interface{}, 0, len(keywords))
	for _, kw := range keywords {
		if kw.KeywordRecord == nil {
			continue
		}
		rows = append(rows, goqu.Record{
			"run_id":            runID,
			"keyword":           kw.Keyword,
			"volume":            utils.Finite(kw.Volume),
			"competition":       utils.Finite(kw.Competition),
			"cpc":               utils.Finite(kw.CPC),
			"top_page_bid":      utils.Finite(kw.TopPageBidHigh),
			"growth_3m":         nullFloat(kw.Growth3M),
			"growth_yoy":        nullFloat(kw.GrowthYoY),
			"similarity_score":  utils.Finite(kw.SimilarityScore),
			"volatility":        nullFloat(kw.Metrics.Volatility),
			"trend_strength":    nullFloat(kw.Metrics.TrendStrength),
			"bid_efficiency":    nullFloat(kw.Metrics.BidEfficiency),
			"tac":               nullFloat(kw.Metrics.TAC),
			"sac":               nullFloat(kw.Metrics.SAC),
			"opportunity_score": nullFloat(kw.Metrics.OpportunityScore),
			"updated_at":        now,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	update := goqu.Record{}
	for _, col := range keywordMetricsColumns[2:] {
		name := col.(string)
		update[name] = goqu.L("EXCLUDED." + name)
	}

	query, args, err := a.db.Insert(keywordMetricsTable).
		Rows(rows...).
		OnConflict(goqu.DoUpdate("run_id, keyword", update)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build keyword metrics upsert", err)
	}

	if _, err := a.client.Exec(ctx, "keyword_metrics.upsert", query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert keyword metrics", err)
	}
	return nil
}

// GetByKeywords returns the most recent stored row per keyword, keyed by the
// normalized keyword
func (a *KeywordMetricsAdapter) GetByKeywords(ctx context.Context, keywords []string) (map[string]*entities.StoredKeywordMetrics, error) {
	result := make(map[string]*entities.StoredKeywordMetrics, len(keywords))
	if len(keywords) == 0 {
		return result, nil
	}

	query, args, err := a.db.Select(keywordMetricsColumns...).
		Distinct("keyword").
		From(keywordMetricsTable).
		Where(goqu.Ex{"keyword": keywords}).
		Order(goqu.C("keyword").Asc(), goqu.C("updated_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build keyword metrics query", err)
	}

	stored, err := a.query(ctx, "keyword_metrics.get_by_keywords", query, args...)
	if err != nil {
		return nil, err
	}
	for _, m := range stored {
		key := utils.NormalizeKeyword(m.Keyword)
		if _, seen := result[key]; !seen {
			result[key] = m
		}
	}
	return result, nil
}

// ListByRun returns a run's keywords by descending opportunity score
func (a *KeywordMetricsAdapter) ListByRun(ctx context.Context, runID string, limit int) ([]*entities.StoredKeywordMetrics, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.Select(keywordMetricsColumns...).
		From(keywordMetricsTable).
		Where(goqu.Ex{"run_id": runID}).
		Order(goqu.C("opportunity_score").Desc().NullsLast(), goqu.C("keyword").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build run keywords query", err)
	}
	return a.query(ctx, "keyword_metrics.list_by_run", query, args...)
}

func (a *KeywordMetricsAdapter) query(ctx context.Context, op, query string, args ...interface{}) ([]*entities.StoredKeywordMetrics, error) {
	rows, err := a.client.Query(ctx, op, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query keyword metrics", err)
	}
	defer rows.Close()

	out := []*entities.StoredKeywordMetrics{}
	for rows.Next() {
		m := &entities.StoredKeywordMetrics{}
		var growth3m, growthYoY, volatility, trend, bidEff, tac, sac, opportunity sql.NullFloat64
		err := rows.Scan(
			&m.RunID,
			&m.Keyword,
			&m.Volume,
			&m.Competition,
			&m.CPC,
			&m.TopPageBid,
			&growth3m,
			&growthYoY,
			&m.SimilarityScore,
			&volatility,
			&trend,
			&bidEff,
			&tac,
			&sac,
			&opportunity,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan keyword metrics", err)
		}
		m.Growth3M = floatPtr(growth3m)
		m.GrowthYoY = floatPtr(growthYoY)
		m.Volatility = floatPtr(volatility)
		m.TrendStrength = floatPtr(trend)
		m.BidEfficiency = floatPtr(bidEff)
		m.TAC = floatPtr(tac)
		m.SAC = floatPtr(sac)
		m.OpportunityScore = floatPtr(opportunity)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate keyword metrics", err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	f := utils.Float(*v)
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
