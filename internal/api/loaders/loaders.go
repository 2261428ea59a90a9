package loaders

import (
	"context"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders holds the request-scoped dataloaders
type Loaders struct {
	// StoredMetrics resolves the latest persisted metrics per keyword. A
	// keyword no run has stored yet resolves to nil without an error.
	StoredMetrics *dataloader.Loader[string, *entities.StoredKeywordMetrics]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(metricsRepo repositories.KeywordMetricsRepository) *Loaders {
	return &Loaders{
		StoredMetrics: dataloader.NewBatchedLoader(
			func(ctx context.Context, keys []string) []*dataloader.Result[*entities.StoredKeywordMetrics] {
				results := make([]*dataloader.Result[*entities.StoredKeywordMetrics], len(keys))
				stored, err := metricsRepo.GetByKeywords(ctx, keys)

				for i, key := range keys {
					if err != nil {
						results[i] = &dataloader.Result[*entities.StoredKeywordMetrics]{Error: err}
						continue
					}
					results[i] = &dataloader.Result[*entities.StoredKeywordMetrics]{Data: stored[utils.NormalizeKeyword(key)]}
				}
				return results
			},
			dataloader.WithWait[string, *entities.StoredKeywordMetrics](2*time.Millisecond),
			dataloader.WithBatchCapacity[string, *entities.StoredKeywordMetrics](500),
		),
	}
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches fresh loaders to every request so batches never leak
// cached results across requests
func Middleware(metricsRepo repositories.KeywordMetricsRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(metricsRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
