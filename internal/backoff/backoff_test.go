package backoff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/callsight-ai/callsight/internal/events"
)

// statusErr is a minimal StatusCoder for tests.
type statusErr struct {
	code int
	body string
}

func (e *statusErr) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (e *statusErr) HTTPStatus() int { return e.code }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"rate limited", &statusErr{code: 429}, ClassRateLimited},
		{"overloaded", &statusErr{code: 503}, ClassOverloaded},
		{"server error 500", &statusErr{code: 500}, ClassServerError},
		{"server error 599", &statusErr{code: 599}, ClassServerError},
		{"input too large", &statusErr{code: 400, body: "This model's maximum context length is 128000 tokens"}, ClassInputTooLarge},
		{"plain 400", &statusErr{code: 400, body: "bad request"}, ClassOther},
		{"not found", &statusErr{code: 404}, ClassOther},
		{"wrapped status", fmt.Errorf("classify: %w", &statusErr{code: 429}), ClassRateLimited},
		{"no status", errors.New("connection reset"), ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDelaySchedule(t *testing.T) {
	want := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
	}
	for n, w := range want {
		if got := Delay(ClassRateLimited, n); got != w {
			t.Errorf("Delay(RateLimited, %d) = %v, want %v", n, got, w)
		}
	}
	// Past the schedule the cap kicks in.
	if got := Delay(ClassRateLimited, 5); got != 90*time.Second {
		t.Errorf("Delay(RateLimited, 5) = %v, want 90s cap", got)
	}
	if got := Delay(ClassOverloaded, 5); got != 180*time.Second {
		t.Errorf("Delay(Overloaded, 5) = %v, want 180s cap", got)
	}
	if got := Delay(ClassServerError, 3); got != 120*time.Second {
		t.Errorf("Delay(ServerError, 3) = %v, want 120s cap", got)
	}
	if got := Delay(ClassOther, 0); got != 0 {
		t.Errorf("Delay(Other, 0) = %v, want 0", got)
	}
}

// newTestController returns a Controller whose sleeps are recorded, not taken.
func newTestController(sink events.Sink) (*Controller, *[]time.Duration) {
	slept := &[]time.Duration{}
	c := New(sink)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
	return c, slept
}

func TestDoSustainedRateLimit(t *testing.T) {
	collector := &events.Collector{}
	c, slept := newTestController(collector)

	calls := 0
	err := c.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &statusErr{code: 429, body: "slow down"}
	})

	if calls != 6 {
		t.Errorf("op called %d times, want 6 (1 try + 5 retries)", calls)
	}
	wantDelays := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second, 80 * time.Second}
	if len(*slept) != len(wantDelays) {
		t.Fatalf("slept %d times (%v), want %d", len(*slept), *slept, len(wantDelays))
	}
	for i, w := range wantDelays {
		if (*slept)[i] != w {
			t.Errorf("sleep %d = %v, want %v", i, (*slept)[i], w)
		}
	}

	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("Do returned %v, want *ExhaustedError", err)
	}
	if ex.Class != ClassRateLimited {
		t.Errorf("ExhaustedError.Class = %v, want ClassRateLimited", ex.Class)
	}
	if ex.Attempts != 6 {
		t.Errorf("ExhaustedError.Attempts = %d, want 6", ex.Attempts)
	}

	warnings := 0
	for _, ev := range collector.Events() {
		if ev.Type == events.SeverityWarning {
			warnings++
		}
	}
	if warnings != 5 {
		t.Errorf("emitted %d warning events, want 5 (one per retry)", warnings)
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	c, slept := newTestController(nil)

	calls := 0
	err := c.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &statusErr{code: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	wantDelays := []time.Duration{10 * time.Second, 20 * time.Second}
	if len(*slept) != 2 || (*slept)[0] != wantDelays[0] || (*slept)[1] != wantDelays[1] {
		t.Errorf("slept %v, want %v", *slept, wantDelays)
	}
}

func TestDoTerminalErrorNotRetried(t *testing.T) {
	c, slept := newTestController(nil)

	calls := 0
	wantErr := errors.New("malformed response")
	err := c.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("Do returned %v, want %v", err, wantErr)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v, want no sleeps", *slept)
	}
}

func TestDoInputTooLarge(t *testing.T) {
	c, _ := newTestController(nil)

	calls := 0
	err := c.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &statusErr{code: 400, body: "context length exceeded"}
	})
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
	if !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("Do returned %v, want ErrInputTooLarge", err)
	}
}

func TestDoCancellationDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(nil)
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	calls := 0
	err := c.Do(ctx, func(ctx context.Context) error {
		calls++
		return &statusErr{code: 429}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do returned %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times after cancellation, want 1", calls)
	}
}

func TestDoCancellationDuringCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, slept := newTestController(nil)

	err := c.Do(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do returned %v, want context.Canceled", err)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v after cancellation, want none", *slept)
	}
}

func TestCtxSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := ctxSleep(ctx, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ctxSleep returned %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("ctxSleep did not return promptly on cancellation")
	}
}
