package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/keywordscout/internal/adapters/corpus"
	"github.com/zatekoja/keywordscout/internal/api/handlers"
	"github.com/zatekoja/keywordscout/internal/api/middleware"
	"github.com/zatekoja/keywordscout/internal/api/routes"
	"github.com/zatekoja/keywordscout/internal/domain/analytics"
	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/providers"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func newTestRouter(origins []string) http.Handler {
	store := corpus.NewStoreFromRecords(&entities.KeywordRecord{
		Keyword: "dog walker",
		Series: []entities.MonthlyVolume{
			{Period: "2024_01", Volume: 100},
			{Period: "2024_02", Volume: 120},
		},
		Competition: 50,
		CPC:         1.5,
	})
	h := routes.Handlers{
		Keyword:  handlers.NewKeywordHandler(nil, store, analytics.NewEngine(), nil),
		Research: handlers.NewResearchHandler(nil, nil, nil, 0),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthCheck{
			"corpus": func(context.Context) error { return nil },
		}),
	}
	cache := middleware.NewCacheMiddleware(&memoryCache{data: map[string][]byte{}}, nil, nil)
	return routes.NewRouter(h, cache, nil, nil, origins).SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRouter_KeywordLookupIsCached(t *testing.T) {
	router := newTestRouter(nil)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/keywords/dog%20walker", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Contains(t, first.Body.String(), `"dog walker"`)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/keywords/dog%20walker", nil))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestRouter_UnknownKeywordIsNotCached(t *testing.T) {
	router := newTestRouter(nil)

	for range 2 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/keywords/unicorn", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	}
}

func TestRouter_MethodMismatch(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/keywords/search", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/competitors", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter([]string{"https://app.example.com"})

	preflight := httptest.NewRequest(http.MethodOptions, "/api/research/runs", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
