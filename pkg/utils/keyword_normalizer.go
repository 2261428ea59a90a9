package utils

import (
	"strings"
)

// NormalizeKeyword returns the dedup key for a keyword: lower-cased, trimmed,
// with inner whitespace collapsed to single spaces.
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
}

// KeywordSet builds a normalized lookup set from raw keyword strings.
// Blank entries are ignored.
func KeywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		key := NormalizeKeyword(kw)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}
