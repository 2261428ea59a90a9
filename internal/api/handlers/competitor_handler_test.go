package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/keywordscout/internal/api/handlers"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
	apperrors "github.com/zatekoja/keywordscout/pkg/errors"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

type stubCompetitors struct {
	pitch string
	count int
	err   error
}

func (s *stubCompetitors) Suggest(_ context.Context, pitch string, count int) ([]utils.Competitor, error) {
	s.pitch, s.count = pitch, count
	if s.err != nil {
		return nil, s.err
	}
	return []utils.Competitor{{Name: "Rover", URL: "https://rover.com"}}, nil
}

func TestCompetitorHandler_Suggest(t *testing.T) {
	stub := &stubCompetitors{}
	w := httptest.NewRecorder()
	handlers.NewCompetitorHandler(stub).Suggest(w, httptest.NewRequest(http.MethodPost, "/api/competitors",
		strings.NewReader(`{"pitch":"dog walking app","count":3}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dog walking app", stub.pitch)
	assert.Equal(t, 3, stub.count)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])
}

func TestCompetitorHandler_Suggest_GeneratorDown(t *testing.T) {
	stub := &stubCompetitors{err: apperrors.NewExternalError("competitor generation failed", errors.New("503"))}
	w := httptest.NewRecorder()
	handlers.NewCompetitorHandler(stub).Suggest(w, httptest.NewRequest(http.MethodPost, "/api/competitors",
		strings.NewReader(`{"pitch":"dog walking app"}`)))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "competitor generation failed", decodeBody(t, w)["error"])
}

type stubZeroResults struct {
	limit int
	err   error
}

func (s *stubZeroResults) GetZeroResultPitches(_ context.Context, limit int) ([]*entities.ResearchEvent, error) {
	s.limit = limit
	return []*entities.ResearchEvent{{Pitch: "quantum yoga"}}, s.err
}

func TestAnalyticsHandler_GetZeroResultPitches(t *testing.T) {
	stub := &stubZeroResults{}
	w := httptest.NewRecorder()
	handlers.NewAnalyticsHandler(stub).GetZeroResultPitches(w, httptest.NewRequest(http.MethodGet, "/api/analytics/zero-result-pitches?limit=5", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, stub.limit)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	stub.err = errors.New("db down")
	w = httptest.NewRecorder()
	handlers.NewAnalyticsHandler(stub).GetZeroResultPitches(w, httptest.NewRequest(http.MethodGet, "/api/analytics/zero-result-pitches", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 50, stub.limit)
}

func TestHealthHandler(t *testing.T) {
	healthy := handlers.NewHealthHandler(map[string]handlers.HealthCheck{
		"corpus": func(context.Context) error { return nil },
	})
	w := httptest.NewRecorder()
	healthy.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])

	degraded := handlers.NewHealthHandler(map[string]handlers.HealthCheck{
		"corpus":   func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	})
	w = httptest.NewRecorder()
	degraded.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]interface{})["postgres"])
}
