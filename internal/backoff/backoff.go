// Package backoff retries failed provider calls with class-specific
// exponential delays. Each failure class carries its own base delay, cap,
// and retryability; the delay for attempt n is min(base*2^n, cap).
package backoff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/callsight-ai/callsight/internal/events"
)

// Class is the failure class assigned to a provider error.
type Class int

const (
	ClassOther Class = iota
	ClassRateLimited
	ClassOverloaded
	ClassServerError
	ClassInputTooLarge
)

func (c Class) String() string {
	switch c {
	case ClassRateLimited:
		return "rate limited"
	case ClassOverloaded:
		return "overloaded"
	case ClassServerError:
		return "server error"
	case ClassInputTooLarge:
		return "input too large"
	default:
		return "unclassified error"
	}
}

type policy struct {
	base      time.Duration
	cap       time.Duration
	retryable bool
}

var policies = map[Class]policy{
	ClassRateLimited: {base: 5 * time.Second, cap: 90 * time.Second, retryable: true},
	ClassOverloaded:  {base: 10 * time.Second, cap: 180 * time.Second, retryable: true},
	ClassServerError: {base: 15 * time.Second, cap: 120 * time.Second, retryable: true},
}

// DefaultMaxRetries is the number of retries after the initial attempt.
const DefaultMaxRetries = 5

// ErrInputTooLarge is the user-facing translation of a context-length
// rejection. It is never retried.
var ErrInputTooLarge = errors.New("the call transcript exceeds the provider's context window; reduce the volume of data and try again")

// StatusCoder is implemented by provider errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// contextMarkers identify a 400 response caused by an oversized prompt.
var contextMarkers = []string{
	"context_length",
	"context length",
	"maximum context",
	"too many tokens",
	"prompt is too long",
}

// Classify maps an error to its failure class. Errors without an HTTP
// status (network failures, malformed responses) are ClassOther and are
// never retried.
func Classify(err error) Class {
	var sc StatusCoder
	if !errors.As(err, &sc) {
		return ClassOther
	}
	code := sc.HTTPStatus()
	switch {
	case code == 429:
		return ClassRateLimited
	case code == 503:
		return ClassOverloaded
	case code == 400 && hasContextMarker(err.Error()):
		return ClassInputTooLarge
	case code >= 500 && code <= 599:
		return ClassServerError
	default:
		return ClassOther
	}
}

func hasContextMarker(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range contextMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Delay computes the wait before retry attempt n (0-indexed) for the given
// class. Returns 0 for classes without a retry policy.
func Delay(class Class, attempt int) time.Duration {
	pol, ok := policies[class]
	if !ok {
		return 0
	}
	d := pol.base << attempt
	if d > pol.cap || d <= 0 {
		d = pol.cap
	}
	return d
}

// ExhaustedError reports that all retries for a retryable class were spent.
// The orchestrator uses the Class to decide whether the whole batch aborts.
type ExhaustedError struct {
	Class    Class
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Class, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Controller wraps one external-call operation with the retry policy.
type Controller struct {
	MaxRetries int
	Sink       events.Sink

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Controller emitting retry warnings to sink.
func New(sink events.Sink) *Controller {
	if sink == nil {
		sink = events.Discard
	}
	return &Controller{
		MaxRetries: DefaultMaxRetries,
		Sink:       sink,
		sleep:      ctxSleep,
	}
}

// Do invokes op, retrying on retryable failure classes until success, a
// terminal error, retry exhaustion, or cancellation. The returned error is
// nil, the terminal error, an *ExhaustedError, or ctx.Err().
func (c *Controller) Do(ctx context.Context, op func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		class := Classify(err)
		if class == ClassInputTooLarge {
			return fmt.Errorf("%w (%v)", ErrInputTooLarge, err)
		}
		pol, ok := policies[class]
		if !ok || !pol.retryable {
			return err
		}
		if attempt >= c.MaxRetries {
			return &ExhaustedError{Class: class, Attempts: attempt + 1, Err: err}
		}

		delay := Delay(class, attempt)
		c.Sink.Emit(
			fmt.Sprintf("Provider %s; waiting %s before retry %d of %d",
				class, delay, attempt+1, c.MaxRetries),
			events.SeverityWarning,
		)
		if serr := c.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// ctxSleep waits for d or until ctx is cancelled.
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
