package provider

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// jsonObjectRe matches the first '{' through the last '}' in a response,
// spanning newlines. Providers occasionally wrap the object in prose.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// fenceMarkers are stripped before JSON extraction. Models frequently wrap
// output in markdown code fences despite instructions not to.
var fenceMarkers = []string{"```json", "```JSON", "```", "`json", "`"}

// parseEnrichment extracts and normalizes the classification object from
// raw provider output. A missing object or a JSON parse failure returns a
// *ParseError carrying a 200-character excerpt for diagnosis.
func parseEnrichment(raw string) (Enrichment, error) {
	text := stripFences(raw)

	obj := jsonObjectRe.FindString(text)
	if obj == "" {
		slog.Warn("provider response contained no JSON object", "excerpt", excerpt(raw))
		return Enrichment{}, &ParseError{Raw: excerpt(raw)}
	}

	var payload struct {
		Categories []string `json:"categories"`
		Sentiment  any      `json:"sentiment"`
		Summary    any      `json:"summary"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		slog.Warn("provider response JSON did not parse", "error", err, "excerpt", excerpt(raw))
		return Enrichment{}, &ParseError{Raw: excerpt(raw)}
	}

	return Enrichment{
		Categories: normalizeCategories(payload.Categories),
		Sentiment:  normalizeSentiment(payload.Sentiment),
		Summary:    normalizeSummary(payload.Summary),
	}, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	for _, m := range fenceMarkers {
		s = strings.ReplaceAll(s, m, "")
	}
	return s
}

func normalizeCategories(cats []string) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{DefaultCategory}
	}
	return out
}

func normalizeSentiment(v any) string {
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func normalizeSummary(v any) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return placeholderSummary
	}
	return strings.TrimSpace(s)
}

func excerpt(s string) string {
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
