package search

import (
	"strings"

	"github.com/google/uuid"

	"github.com/zatekoja/keywordscout/internal/domain/entities"
	"github.com/zatekoja/keywordscout/pkg/utils"
)

// MaxIndexedTokens caps the token bag stored per keyword document
const MaxIndexedTokens = 32

// DocumentID returns the stable index id for a keyword. Keywords that only
// differ in case or spacing share one id.
func DocumentID(keyword string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("keyword:"+utils.NormalizeKeyword(keyword))).String()
}

func buildKeywordDocument(kw entities.EnrichedKeyword) map[string]interface{} {
	if kw.KeywordRecord == nil {
		return nil
	}

	doc := map[string]interface{}{
		"id":           DocumentID(kw.Keyword),
		"keyword":      kw.Keyword,
		"volume":       utils.Finite(kw.Volume),
		"competition":  utils.Finite(kw.Competition),
		"cpc":          utils.Finite(kw.CPC),
		"top_page_bid": utils.Finite(kw.TopPageBidHigh),
		"tokens":       buildKeywordTokens(kw.Keyword),
	}
	putOptional(doc, "growth_3m", kw.Growth3M)
	putOptional(doc, "growth_yoy", kw.GrowthYoY)
	putOptional(doc, "volatility", kw.Metrics.Volatility)
	putOptional(doc, "opportunity_score", kw.Metrics.OpportunityScore)
	return doc
}

func putOptional(doc map[string]interface{}, field string, v *float64) {
	if v == nil {
		return
	}
	if p := utils.Float(*v); p != nil {
		doc[field] = *p
	}
}

// buildKeywordTokens returns the distinct words of a keyword plus its
// adjacent word pairs, so partial phrases match.
func buildKeywordTokens(keyword string) []string {
	words := strings.Fields(utils.NormalizeKeyword(keyword))
	if len(words) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(words)*2)
	tokens := make([]string, 0, len(words)*2)
	add := func(t string) {
		if _, ok := seen[t]; ok || len(tokens) >= MaxIndexedTokens {
			return
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}

	for _, w := range words {
		add(w)
	}
	for i := 1; i < len(words); i++ {
		add(words[i-1] + " " + words[i])
	}
	return tokens
}

func parseKeywordHit(doc map[string]interface{}, textMatch *int64) *entities.KeywordSearchHit {
	keyword, _ := doc["keyword"].(string)
	if keyword == "" {
		return nil
	}

	hit := &entities.KeywordSearchHit{
		Keyword:          keyword,
		Volume:           number(doc["volume"]),
		Competition:      number(doc["competition"]),
		CPC:              number(doc["cpc"]),
		GrowthYoY:        number(doc["growth_yoy"]),
		OpportunityScore: number(doc["opportunity_score"]),
	}
	if textMatch != nil {
		hit.TextMatch = *textMatch
	}
	return hit
}

func number(raw interface{}) float64 {
	if raw == nil {
		return 0
	}
	v, err := utils.ParseNumber(raw)
	if err != nil {
		return 0
	}
	return v
}
