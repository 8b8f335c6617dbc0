// Package provider turns one call transcript into a classification result
// by calling an external text-classification provider. Two interchangeable
// variants exist: an OpenAI-compatible chat-completions client and an
// Anthropic messages client. The variant is chosen once at configuration
// time; everything downstream sees only the Classifier interface.
package provider

import (
	"context"
	"fmt"
)

// Provider variant names accepted by New.
const (
	NameOpenAI    = "openai"
	NameAnthropic = "anthropic"
)

// Sentiment values recognized in classification results.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// DefaultCategory is assigned when the provider returns no categories.
const DefaultCategory = "Unknown"

// placeholderSummary is assigned when the provider returns no usable summary.
const placeholderSummary = "No summary available."

// Item is one unit of work to classify.
type Item struct {
	Transcript      string
	CallReason      string
	IssuesDiscussed string
}

// Enrichment is the classification produced for one Item. Categories is
// never empty and Sentiment is always one of the recognized values once an
// Enrichment leaves this package.
type Enrichment struct {
	Categories []string `json:"categories"`
	Sentiment  string   `json:"sentiment"`
	Summary    string   `json:"summary"`
}

// Classifier is the enrichment capability the pipeline drives.
type Classifier interface {
	Classify(ctx context.Context, item Item) (Enrichment, error)
}

// Config selects and configures a provider variant. It is read-only for the
// duration of a batch; callers must not mutate it while a batch is running.
type Config struct {
	Name    string // "openai" or "anthropic"
	Model   string
	APIKey  string
	BaseURL string // optional override, mainly for tests
}

// New builds the Classifier for cfg.Name.
func New(cfg Config) (Classifier, error) {
	switch cfg.Name {
	case NameOpenAI:
		return NewOpenAIClient(cfg), nil
	case NameAnthropic:
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want openai or anthropic)", cfg.Name)
	}
}

// StatusError is a provider failure that carries an HTTP status, which the
// backoff layer uses to pick a retry policy.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Body)
}

// HTTPStatus implements backoff.StatusCoder.
func (e *StatusError) HTTPStatus() int { return e.Code }

// ParseError reports that the provider's response text contained no usable
// JSON object. It is terminal for the item; the backoff layer never retries
// it because it carries no HTTP status.
type ParseError struct {
	Raw string // first 200 characters of the raw response, for diagnosis
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no JSON classification found in provider response: %q", e.Raw)
}
