// Package stats turns an enriched batch into an immutable category and
// sentiment snapshot. Aggregation is pure and deterministic: the same input
// list always produces the same snapshot (up to the generation timestamp).
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/callsight-ai/callsight/internal/pipeline"
	"github.com/callsight-ai/callsight/internal/provider"
)

// topCategoryCount is how many leading category names the summary carries.
const topCategoryCount = 10

// SentimentTally counts records per sentiment.
type SentimentTally struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (t *SentimentTally) add(sentiment string) {
	switch sentiment {
	case provider.SentimentPositive:
		t.Positive++
	case provider.SentimentNegative:
		t.Negative++
	default:
		t.Neutral++
	}
}

// CategoryStat summarizes one category across the batch. Because a call can
// carry several category labels, Percentage values are per-category shares
// of total calls and do not sum to 100 across categories.
type CategoryStat struct {
	Category        string         `json:"category"`
	Count           int            `json:"count"`
	Percentage      float64        `json:"percentage"`
	DistinctCallers int            `json:"distinct_callers"`
	Sentiment       SentimentTally `json:"sentiment"`
}

// Summary holds batch-wide totals.
type Summary struct {
	TotalDurationSeconds float64        `json:"total_duration_seconds"`
	AvgDurationSeconds   float64        `json:"avg_duration_seconds"`
	Sentiment            SentimentTally `json:"sentiment_distribution"`
	TopCategories        []string       `json:"top_categories"`
}

// Snapshot is the aggregation result. It is immutable once produced;
// downstream formatters consume it without recomputing any statistic.
type Snapshot struct {
	TotalCalls  int                       `json:"total_calls"`
	Categories  []CategoryStat            `json:"categories"`
	Records     []pipeline.EnrichedRecord `json:"records"`
	Summary     Summary                   `json:"summary"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

type categoryAccum struct {
	count   int
	callers map[string]struct{}
	tally   SentimentTally
}

// Aggregate scans records and produces the snapshot. Sentiment is read
// case-insensitively; anything other than "positive" or "negative" tallies
// as neutral.
func Aggregate(records []pipeline.EnrichedRecord) Snapshot {
	total := len(records)

	var order []string
	accums := make(map[string]*categoryAccum)
	var global SentimentTally
	var totalDuration float64

	for _, rec := range records {
		sentiment := normalizeSentiment(rec.Sentiment)
		global.add(sentiment)
		totalDuration += rec.DurationSeconds

		for _, cat := range rec.Categories {
			acc, ok := accums[cat]
			if !ok {
				acc = &categoryAccum{callers: make(map[string]struct{})}
				accums[cat] = acc
				order = append(order, cat)
			}
			acc.count++
			acc.callers[callerKey(rec)] = struct{}{}
			acc.tally.add(sentiment)
		}
	}

	// Stable sort keeps first-seen order on equal counts.
	categories := make([]CategoryStat, 0, len(order))
	for _, cat := range order {
		acc := accums[cat]
		categories = append(categories, CategoryStat{
			Category:        cat,
			Count:           acc.count,
			Percentage:      float64(acc.count) / float64(total) * 100,
			DistinctCallers: len(acc.callers),
			Sentiment:       acc.tally,
		})
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Count > categories[j].Count
	})

	top := make([]string, 0, topCategoryCount)
	for _, c := range categories {
		if len(top) == topCategoryCount {
			break
		}
		top = append(top, c.Category)
	}

	avg := 0.0
	if total > 0 {
		avg = totalDuration / float64(total)
	}

	return Snapshot{
		TotalCalls: total,
		Categories: categories,
		Records:    records,
		Summary: Summary{
			TotalDurationSeconds: totalDuration,
			AvgDurationSeconds:   avg,
			Sentiment:            global,
			TopCategories:        top,
		},
		GeneratedAt: time.Now().UTC(),
	}
}

func normalizeSentiment(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case provider.SentimentPositive:
		return provider.SentimentPositive
	case provider.SentimentNegative:
		return provider.SentimentNegative
	default:
		return provider.SentimentNeutral
	}
}

// callerKey identifies a caller for the distinct-caller sets; records
// without a customer name fall back to the record ID.
func callerKey(rec pipeline.EnrichedRecord) string {
	if rec.Customer != "" {
		return rec.Customer
	}
	return rec.ID
}
