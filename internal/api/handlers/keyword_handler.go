package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/keywordscout/internal/api/loaders"
	"github.com/zatekoja/keywordscout/internal/application/services"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
)

const maxMetricsKeywords = 100

// KeywordResearcher answers single-query discovery and rescoring
type KeywordResearcher interface {
	Discover(ctx context.Context, req services.DiscoverRequest) (*entities.SelectionResult, error)
	RescoreKeywords(ctx context.Context, pitch string, keywords []string) ([]entities.KeywordScore, error)
}

// KeywordHandler handles keyword discovery and lookup requests
type KeywordHandler struct {
	research   KeywordResearcher
	corpus     repositories.CorpusRepository
	calculator services.MetricsCalculator
	search     repositories.KeywordSearchRepository
}

// NewKeywordHandler creates a keyword handler. search may be nil when no
// keyword index is configured.
func NewKeywordHandler(
	research KeywordResearcher,
	corpus repositories.CorpusRepository,
	calculator services.MetricsCalculator,
	search repositories.KeywordSearchRepository,
) *KeywordHandler {
	return &KeywordHandler{
		research:   research,
		corpus:     corpus,
		calculator: calculator,
		search:     search,
	}
}

type discoverRequest struct {
	Pitch       string          `json:"pitch"`
	Filters     []filterRequest `json:"filters"`
	Exclude     []string        `json:"exclude"`
	TargetCount int             `json:"target_count"`
	PoolSize    int             `json:"pool_size"`
}

// Discover handles POST /api/keywords/discover
func (h *KeywordHandler) Discover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	filters, err := toFilters(req.Filters)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.research.Discover(r.Context(), services.DiscoverRequest{
		Pitch:       req.Pitch,
		Filters:     filters,
		Exclude:     req.Exclude,
		TargetCount: req.TargetCount,
		PoolSize:    req.PoolSize,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": result.Keywords,
		"count":    len(result.Keywords),
		"reason":   result.Reason,
	})
}

type similarityRequest struct {
	Pitch    string   `json:"pitch"`
	Keywords []string `json:"keywords"`
}

// Similarity handles POST /api/keywords/similarity
func (h *KeywordHandler) Similarity(w http.ResponseWriter, r *http.Request) {
	var req similarityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if len(req.Keywords) == 0 {
		respondWithError(w, http.StatusBadRequest, "keywords are required")
		return
	}

	scores, err := h.research.RescoreKeywords(r.Context(), req.Pitch, req.Keywords)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"scores": scores,
		"count":  len(scores),
	})
}

// keywordView is a corpus record with its derived metrics
type keywordView struct {
	*entities.KeywordRecord
	Metrics entities.KeywordMetrics        `json:"metrics"`
	Stored  *entities.StoredKeywordMetrics `json:"stored,omitempty"`
}

// GetKeyword handles GET /api/keywords/{keyword}
func (h *KeywordHandler) GetKeyword(w http.ResponseWriter, r *http.Request) {
	keyword := r.PathValue("keyword")
	if strings.TrimSpace(keyword) == "" {
		respondWithError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	record, ok := h.corpus.Lookup(keyword)
	if !ok {
		respondWithError(w, http.StatusNotFound, "keyword not found")
		return
	}
	respondWithJSON(w, http.StatusOK, keywordView{
		KeywordRecord: record,
		Metrics:       h.calculator.Compute(record),
	})
}

// Metrics handles GET /api/keywords/metrics?keyword=a&keyword=b. Each known
// keyword carries live metrics and the latest stored research result.
func (h *KeywordHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	keywords := r.URL.Query()["keyword"]
	if len(keywords) == 0 {
		respondWithError(w, http.StatusBadRequest, "at least one keyword is required")
		return
	}
	if len(keywords) > maxMetricsKeywords {
		respondWithError(w, http.StatusBadRequest, "too many keywords (max "+strconv.Itoa(maxMetricsKeywords)+")")
		return
	}

	var stored []*entities.StoredKeywordMetrics
	if l := loaders.For(r.Context()); l != nil {
		values, errs := l.StoredMetrics.LoadMany(r.Context(), keywords)()
		for _, err := range errs {
			if err != nil {
				respondWithAppError(w, r, apperrors.NewInternalError("failed to load stored metrics", err))
				return
			}
		}
		stored = values
	}

	views := make([]keywordView, 0, len(keywords))
	missing := []string{}
	for i, kw := range keywords {
		record, ok := h.corpus.Lookup(kw)
		if !ok {
			missing = append(missing, kw)
			continue
		}
		view := keywordView{KeywordRecord: record, Metrics: h.calculator.Compute(record)}
		if i < len(stored) {
			view.Stored = stored[i]
		}
		views = append(views, view)
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": views,
		"missing":  missing,
	})
}

// Search handles GET /api/keywords/search?q=&min_volume=&limit=&offset=
func (h *KeywordHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		respondWithError(w, http.StatusServiceUnavailable, "keyword search is not configured")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "q is required")
		return
	}

	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	minVolume := 0.0
	if raw := r.URL.Query().Get("min_volume"); raw != "" {
		minVolume, err = strconv.ParseFloat(raw, 64)
		if err != nil || minVolume < 0 {
			respondWithError(w, http.StatusBadRequest, "min_volume must be a non-negative number")
			return
		}
	}

	hits, err := h.search.Search(r.Context(), repositories.KeywordSearchParams{
		Query:     query,
		MinVolume: minVolume,
		Limit:     min(limit, 100),
		Offset:    offset,
	})
	if err != nil {
		respondWithAppError(w, r, apperrors.NewExternalError("keyword search failed", err))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hits":  hits,
		"count": len(hits),
	})
}
