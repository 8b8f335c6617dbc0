// Package pipeline drives the enrichment of an ordered batch of call
// records through a Classifier, one record at a time. Dispatch is strictly
// sequential so the provider's rate budget stays deterministic; per-item
// failures degrade into fallback results, and only rate-limit exhaustion
// aborts the whole batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/callsight-ai/callsight/internal/backoff"
	"github.com/callsight-ai/callsight/internal/dataset"
	"github.com/callsight-ai/callsight/internal/events"
	"github.com/callsight-ai/callsight/internal/provider"
)

// FallbackCategory marks records whose classification failed terminally.
const FallbackCategory = "UNCATEGORIZED - API ERROR"

const (
	// pacingDelay separates consecutive provider calls on the normal path.
	pacingDelay = 2500 * time.Millisecond
	// errorPacingDelay separates calls after a caught per-item failure.
	errorPacingDelay = 10 * time.Second
)

// EnrichedRecord pairs an input record with its classification. The output
// list of a batch holds one EnrichedRecord per input, in input order.
type EnrichedRecord struct {
	dataset.CallRecord
	provider.Enrichment
}

// AbortError reports a fatal batch termination. Processed is the number of
// records that completed before the abort.
type AbortError struct {
	Processed int
	Err       error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("batch aborted after %d records: rate limit exhausted: %v", e.Processed, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// Orchestrator runs batches against one provider configuration.
type Orchestrator struct {
	classifier provider.Classifier
	retrier    *backoff.Controller
	sink       events.Sink

	pacing      time.Duration
	errorPacing time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator. The sink receives every progress, success,
// warning, and error event of the batch, in order.
func New(classifier provider.Classifier, sink events.Sink) *Orchestrator {
	if sink == nil {
		sink = events.Discard
	}
	return &Orchestrator{
		classifier:  classifier,
		retrier:     backoff.New(sink),
		sink:        sink,
		pacing:      pacingDelay,
		errorPacing: errorPacingDelay,
		sleep:       ctxSleep,
	}
}

// Run enriches records in order. The returned slice has one entry per input
// unless the batch was fatally aborted or cancelled, in which case it holds
// only the records completed so far and the error explains the stop.
func (o *Orchestrator) Run(ctx context.Context, records []dataset.CallRecord) ([]EnrichedRecord, error) {
	out := make([]EnrichedRecord, 0, len(records))

	for i, rec := range records {
		if ctx.Err() != nil {
			o.sink.Emit("Analysis stopped", events.SeverityInfo)
			return out, ctx.Err()
		}

		o.sink.Emit(fmt.Sprintf("Processing call %d of %d...", i+1, len(records)), events.SeverityProgress)

		start := time.Now()
		var enr provider.Enrichment
		err := o.retrier.Do(ctx, func(ctx context.Context) error {
			var cerr error
			enr, cerr = o.classifier.Classify(ctx, provider.Item{
				Transcript:      rec.Transcript,
				CallReason:      rec.CallReason,
				IssuesDiscussed: rec.IssuesDiscussed,
			})
			return cerr
		})

		if err != nil {
			if ctx.Err() != nil {
				o.sink.Emit("Analysis stopped", events.SeverityInfo)
				return out, ctx.Err()
			}
			o.sink.Emit(fmt.Sprintf("Call %d failed: %v", i+1, err), events.SeverityError)

			var exhausted *backoff.ExhaustedError
			if errors.As(err, &exhausted) && exhausted.Class == backoff.ClassRateLimited {
				return out, &AbortError{Processed: len(out), Err: err}
			}

			out = append(out, EnrichedRecord{
				CallRecord: rec,
				Enrichment: provider.Enrichment{
					Categories: []string{FallbackCategory},
					Sentiment:  provider.SentimentNeutral,
					Summary:    fmt.Sprintf("Classification failed: %v", err),
				},
			})
			if i < len(records)-1 {
				if serr := o.sleep(ctx, o.errorPacing); serr != nil {
					o.sink.Emit("Analysis stopped", events.SeverityInfo)
					return out, serr
				}
			}
			continue
		}

		elapsed := time.Since(start)
		o.sink.Emit(fmt.Sprintf("Call %d classified in %.1fs", i+1, elapsed.Seconds()), events.SeveritySuccess)
		o.sink.Emit(fmt.Sprintf("Categories: %s | Sentiment: %s",
			strings.Join(enr.Categories, ", "), enr.Sentiment), events.SeverityInfo)

		out = append(out, EnrichedRecord{CallRecord: rec, Enrichment: enr})

		if i < len(records)-1 {
			if serr := o.sleep(ctx, o.pacing); serr != nil {
				o.sink.Emit("Analysis stopped", events.SeverityInfo)
				return out, serr
			}
		}
	}

	return out, nil
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
