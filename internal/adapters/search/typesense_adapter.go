package search

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/internal/domain/repositories"
	tsclient "github.com/zatekoja/keywordscout/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/keywordscout/internal/infrastructure/observability"
)

const defaultSearchLimit = 20

// TypesenseAdapter implements lexical keyword search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.KeywordSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// Index upserts one keyword document
func (a *TypesenseAdapter) Index(ctx context.Context, keyword entities.EnrichedKeyword) error {
	doc := buildKeywordDocument(keyword)
	if doc == nil {
		return fmt.Errorf("cannot index keyword without a corpus record")
	}

	_, err := a.client.Client().Collection(a.client.Collection()).Documents().Upsert(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to index keyword %q: %w", keyword.Keyword, err)
	}
	return nil
}

// Search runs a lexical query over keyword text and tokens
func (a *TypesenseAdapter) Search(ctx context.Context, params repositories.KeywordSearchParams) ([]*entities.KeywordSearchHit, error) {
	ctx, span := observability.StartSpan(ctx, "search.keywords")
	defer span.End()

	searchParams := buildSearchParams(params)
	result, err := a.client.Client().Collection(a.client.Collection()).Documents().Search(ctx, searchParams)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to search keywords: %w", err)
	}

	hits := []*entities.KeywordSearchHit{}
	if result.Hits == nil {
		return hits, nil
	}
	for _, h := range *result.Hits {
		if h.Document == nil {
			continue
		}
		if hit := parseKeywordHit(*h.Document, h.TextMatch); hit != nil {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

func buildSearchParams(params repositories.KeywordSearchParams) *api.SearchCollectionParams {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	query := params.Query
	if query == "" {
		query = "*"
	}

	sp := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("keyword,tokens"),
		SortBy:  pointer.String("_text_match:desc,volume:desc"),
		Page:    pointer.Int(offset/limit + 1),
		PerPage: pointer.Int(limit),
	}
	if params.MinVolume > 0 {
		sp.FilterBy = pointer.String(fmt.Sprintf("volume:>=%g", params.MinVolume))
	}
	return sp
}
