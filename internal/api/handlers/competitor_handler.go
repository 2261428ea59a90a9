package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/keywordscout/pkg/utils"
)

// CompetitorSuggester suggests competing products for a pitch
type CompetitorSuggester interface {
	Suggest(ctx context.Context, pitch string, count int) ([]utils.Competitor, error)
}

type CompetitorHandler struct {
	competitors CompetitorSuggester
}

func NewCompetitorHandler(competitors CompetitorSuggester) *CompetitorHandler {
	return &CompetitorHandler{competitors: competitors}
}

// Suggest handles POST /api/competitors
func (h *CompetitorHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pitch string `json:"pitch"`
		Count int    `json:"count"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	competitors, err := h.competitors.Suggest(r.Context(), req.Pitch, req.Count)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"competitors": competitors,
		"count":       len(competitors),
	})
}
