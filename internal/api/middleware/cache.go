package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/zatekoja/keywordscout/internal/domain/providers"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

// maxCachedBody bounds what a single response may occupy in the shared cache
const maxCachedBody = 1 << 20

// CacheConfig holds cache configuration for specific routes
type CacheConfig struct {
	TTLSeconds int
	Enabled    bool
}

// DefaultCacheRoutes caches read-only lookups served from the immutable
// corpus and the keyword index. Keys ending in "/" match by prefix.
var DefaultCacheRoutes = map[string]CacheConfig{
	"/api/keywords/search":  {TTLSeconds: 300, Enabled: true},
	"/api/keywords/metrics": {TTLSeconds: 120, Enabled: true},
	"/api/keywords/":        {TTLSeconds: 3600, Enabled: true},
}

// CacheMiddleware stores successful GET responses in the shared cache
type CacheMiddleware struct {
	cache   providers.CacheProvider
	routes  map[string]CacheConfig
	metrics *observability.Metrics
}

// NewCacheMiddleware creates a cache middleware. routes nil uses
// DefaultCacheRoutes.
func NewCacheMiddleware(cache providers.CacheProvider, routes map[string]CacheConfig, metrics *observability.Metrics) *CacheMiddleware {
	if routes == nil {
		routes = DefaultCacheRoutes
	}
	return &CacheMiddleware{cache: cache, routes: routes, metrics: metrics}
}

// Middleware returns the cache middleware handler. A request carrying
// "Cache-Control: no-cache" skips the lookup but still refreshes the entry.
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}
		route, ok := m.routeFor(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := cacheKey(r)

		if strings.Contains(r.Header.Get("Cache-Control"), "no-cache") {
			w.Header().Set("X-Cache", "BYPASS")
		} else if cached, err := m.cache.Get(ctx, key); err == nil {
			observability.RecordCacheHit(ctx, m.metrics, "http")
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		} else {
			observability.RecordCacheMiss(ctx, m.metrics, "http")
			w.Header().Set("X-Cache", "MISS")
		}

		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.statusCode != http.StatusOK || rec.body.Len() == 0 || rec.overflow {
			return
		}
		if err := m.cache.Set(ctx, key, rec.body.Bytes(), route.TTLSeconds); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to cache response")
		}
	})
}

// routeFor returns the config for path. Exact entries win, then the
// longest matching prefix.
func (m *CacheMiddleware) routeFor(path string) (CacheConfig, bool) {
	if cfg, ok := m.routes[path]; ok {
		return cfg, cfg.Enabled
	}
	best := ""
	for pattern := range m.routes {
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) && len(pattern) > len(best) {
			best = pattern
		}
	}
	if best == "" {
		return CacheConfig{}, false
	}
	cfg := m.routes[best]
	return cfg, cfg.Enabled
}

// cacheKey hashes the path with its canonicalised query so parameter order
// does not split entries
func cacheKey(r *http.Request) string {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.Query().Encode()
	}
	sum := sha256.Sum256([]byte(key))
	return "kw:http:" + hex.EncodeToString(sum[:])
}

// responseRecorder tees the response to the client and a buffer
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	body        bytes.Buffer
	wroteHeader bool
	overflow    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	r.WriteHeader(http.StatusOK)
	if !r.overflow {
		if r.body.Len()+len(data) > maxCachedBody {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(data)
		}
	}
	return r.ResponseWriter.Write(data)
}
