package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Competitor is one entry of a competitor list returned by the text generator.
type Competitor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

var (
	listBulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)
	jsonArraySpan    = regexp.MustCompile(`(?s)\[.*\]`)
)

// StripCodeFences removes a leading ```json / ``` fence and its closing fence.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		// drop the language tag on the opening line
		if idx := strings.IndexByte(cleaned, '\n'); idx >= 0 && !strings.ContainsAny(cleaned[:idx], "[{") {
			cleaned = cleaned[idx+1:]
		} else {
			cleaned = strings.TrimPrefix(cleaned, "json")
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	return strings.TrimSpace(cleaned)
}

// ParseStringList extracts a list of strings from free-form generator output.
// A JSON array is preferred; otherwise the text is split on commas and
// newlines. Entries are trimmed of quotes and bullets and de-duplicated
// case-insensitively. It never fails: unusable input yields an empty slice.
func ParseStringList(text string) []string {
	cleaned := StripCodeFences(text)
	if cleaned == "" {
		return []string{}
	}

	if items, ok := decodeStringArray(cleaned); ok {
		return dedupeStrings(items)
	}
	if span := jsonArraySpan.FindString(cleaned); span != "" {
		if items, ok := decodeStringArray(span); ok {
			return dedupeStrings(items)
		}
	}

	parts := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = listBulletPrefix.ReplaceAllString(part, "")
		part = strings.Trim(strings.TrimSpace(part), `"'[]`)
		items = append(items, part)
	}
	return dedupeStrings(items)
}

// ParseCompetitors extracts {name, description, url} objects from generator
// output. Entries without a name are dropped. Non-JSON output falls back to
// one competitor per list line with only the name set.
func ParseCompetitors(text string) []Competitor {
	cleaned := StripCodeFences(text)
	if cleaned == "" {
		return []Competitor{}
	}

	var parsed []Competitor
	err := json.Unmarshal([]byte(cleaned), &parsed)
	if err != nil {
		if span := jsonArraySpan.FindString(cleaned); span != "" {
			err = json.Unmarshal([]byte(span), &parsed)
		}
	}
	if err == nil {
		out := make([]Competitor, 0, len(parsed))
		for _, c := range parsed {
			c.Name = strings.TrimSpace(c.Name)
			if c.Name == "" {
				continue
			}
			c.Description = strings.TrimSpace(c.Description)
			c.URL = strings.TrimSpace(c.URL)
			out = append(out, c)
		}
		return out
	}

	names := ParseStringList(cleaned)
	out := make([]Competitor, 0, len(names))
	for _, name := range names {
		out = append(out, Competitor{Name: name})
	}
	return out
}

func decodeStringArray(text string) ([]string, bool) {
	var raw []interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}
	items := make([]string, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case string:
			items = append(items, t)
		case map[string]interface{}:
			// tolerate [{"name": "..."}] shaped lists
			if name, ok := t["name"].(string); ok {
				items = append(items, name)
			}
		}
	}
	return items, true
}

func dedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := NormalizeKeyword(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
