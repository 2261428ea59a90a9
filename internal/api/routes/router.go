package routes

import (
	"net/http"

	"github.com/zatekoja/keywordscout/internal/api/handlers"
	"github.com/zatekoja/keywordscout/internal/api/loaders"
	"github.com/zatekoja/keywordscout/internal/api/middleware"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

// Handlers groups the HTTP handlers mounted by the router. Competitor and
// Analytics are optional and their routes are skipped when nil.
type Handlers struct {
	Keyword    *handlers.KeywordHandler
	Research   *handlers.ResearchHandler
	Competitor *handlers.CompetitorHandler
	Analytics  *handlers.AnalyticsHandler
	Health     *handlers.HealthHandler
}

// Router holds all route handlers
type Router struct {
	mux             *http.ServeMux
	handlers        Handlers
	cacheMiddleware *middleware.CacheMiddleware
	metricsRepo     repositories.KeywordMetricsRepository
	metrics         *observability.Metrics
	allowedOrigins  []string
}

// NewRouter creates a new router
func NewRouter(
	h Handlers,
	cacheMiddleware *middleware.CacheMiddleware,
	metricsRepo repositories.KeywordMetricsRepository,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		handlers:        h,
		cacheMiddleware: cacheMiddleware,
		metricsRepo:     metricsRepo,
		metrics:         metrics,
		allowedOrigins:  allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	if r.handlers.Health != nil {
		r.mux.HandleFunc("GET /health", r.handlers.Health.Health)
	} else {
		r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})
	}

	// Keyword endpoints
	r.mux.HandleFunc("POST /api/keywords/discover", r.handlers.Keyword.Discover)
	r.mux.HandleFunc("POST /api/keywords/similarity", r.handlers.Keyword.Similarity)
	r.mux.HandleFunc("GET /api/keywords/search", r.handlers.Keyword.Search)
	r.mux.HandleFunc("GET /api/keywords/metrics", r.handlers.Keyword.Metrics)
	r.mux.HandleFunc("GET /api/keywords/{keyword}", r.handlers.Keyword.GetKeyword)

	// Research run endpoints
	r.mux.HandleFunc("POST /api/research/runs", r.handlers.Research.StartRun)
	r.mux.HandleFunc("GET /api/research/runs/{id}", r.handlers.Research.GetRun)
	r.mux.HandleFunc("POST /api/research/runs/{id}/resume", r.handlers.Research.ResumeRun)
	r.mux.HandleFunc("GET /api/research/runs/{id}/keywords", r.handlers.Research.GetRunKeywords)
	r.mux.HandleFunc("GET /api/research/runs/{id}/stream", r.handlers.Research.StreamRun)

	if r.handlers.Competitor != nil {
		r.mux.HandleFunc("POST /api/competitors", r.handlers.Competitor.Suggest)
	}

	// Analytics endpoints
	if r.handlers.Analytics != nil {
		r.mux.HandleFunc("GET /api/analytics/zero-result-pitches", r.handlers.Analytics.GetZeroResultPitches)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	if r.metricsRepo != nil {
		handler = loaders.Middleware(r.metricsRepo)(handler)
	}
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics, middleware.MuxRoutes(r.mux))(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORS(r.allowedOrigins)(handler)

	return handler
}
