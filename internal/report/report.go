// Package report renders an analysis snapshot for humans and spreadsheets.
// Formatters are pure presentation: every number comes straight from the
// snapshot and nothing is recomputed here.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/callsight-ai/callsight/internal/stats"
)

// Table renders an aligned text table of per-category statistics followed by
// batch totals.
func Table(snap stats.Snapshot) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "CATEGORY\tCALLS\tSHARE\tCALLERS\tPOS\tNEU\tNEG")
	for _, c := range snap.Categories {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%d\t%d\t%d\t%d\n",
			c.Category, c.Count, c.Percentage, c.DistinctCallers,
			c.Sentiment.Positive, c.Sentiment.Neutral, c.Sentiment.Negative)
	}
	w.Flush()

	sum := snap.Summary
	fmt.Fprintf(&buf, "\n%d calls analyzed", snap.TotalCalls)
	if sum.TotalDurationSeconds > 0 {
		fmt.Fprintf(&buf, " | total %s, avg %s",
			formatDuration(sum.TotalDurationSeconds), formatDuration(sum.AvgDurationSeconds))
	}
	fmt.Fprintf(&buf, "\nsentiment: %d positive / %d neutral / %d negative\n",
		sum.Sentiment.Positive, sum.Sentiment.Neutral, sum.Sentiment.Negative)
	if !snap.GeneratedAt.IsZero() {
		fmt.Fprintf(&buf, "generated %s\n", snap.GeneratedAt.Format(time.RFC3339))
	}
	return buf.String()
}

// CSV renders the category statistics as a spreadsheet-friendly export.
func CSV(snap stats.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"category", "count", "percentage", "distinct_callers", "positive", "neutral", "negative"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for _, c := range snap.Categories {
		record := []string{
			c.Category,
			strconv.Itoa(c.Count),
			strconv.FormatFloat(c.Percentage, 'f', 2, 64),
			strconv.Itoa(c.DistinctCallers),
			strconv.Itoa(c.Sentiment.Positive),
			strconv.Itoa(c.Sentiment.Neutral),
			strconv.Itoa(c.Sentiment.Negative),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing row for %q: %w", c.Category, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return d.Round(time.Second).String()
}
