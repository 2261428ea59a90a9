package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

// ZeroResultLister lists recent research calls that found nothing
type ZeroResultLister interface {
	GetZeroResultPitches(ctx context.Context, limit int) ([]*entities.ResearchEvent, error)
}

type AnalyticsHandler struct {
	analytics ZeroResultLister
}

func NewAnalyticsHandler(analytics ZeroResultLister) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetZeroResultPitches handles GET /api/analytics/zero-result-pitches
func (h *AnalyticsHandler) GetZeroResultPitches(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	events, err := h.analytics.GetZeroResultPitches(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to fetch analytics")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"pitches": events,
		"count":   len(events),
	})
}
