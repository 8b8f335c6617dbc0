package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatCompletionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestOpenAIClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("request path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages = %+v, want system + user", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "the printer is on fire") {
			t.Errorf("user message missing transcript: %q", req.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionBody(`{"categories":["Hardware"],"sentiment":"negative","summary":"printer failure"}`)))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL})
	got, err := c.Classify(context.Background(), Item{Transcript: "the printer is on fire"})
	if err != nil {
		t.Fatalf("Classify returned %v", err)
	}
	if got.Categories[0] != "Hardware" || got.Sentiment != SentimentNegative {
		t.Errorf("Classify = %+v", got)
	}
}

func TestOpenAIClassifyStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := c.Classify(context.Background(), Item{Transcript: "t"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Classify returned %v, want *StatusError", err)
	}
	if se.Code != http.StatusTooManyRequests {
		t.Errorf("StatusError.Code = %d, want 429", se.Code)
	}
	if se.HTTPStatus() != 429 {
		t.Errorf("HTTPStatus() = %d, want 429", se.HTTPStatus())
	}
}

func TestOpenAIClassifyNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := c.Classify(context.Background(), Item{Transcript: "t"})

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Classify returned %v, want *ParseError", err)
	}
}

func TestOpenAIClassifyCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewOpenAIClient(Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := c.Classify(ctx, Item{Transcript: "t"})
	if err == nil {
		t.Fatal("Classify returned nil error for cancelled context")
	}
}

func TestNewSelectsVariant(t *testing.T) {
	c, err := New(Config{Name: "openai", Model: "m", APIKey: "k"})
	if err != nil {
		t.Fatalf("New(openai) returned %v", err)
	}
	if _, ok := c.(*OpenAIClient); !ok {
		t.Errorf("New(openai) = %T, want *OpenAIClient", c)
	}

	c, err = New(Config{Name: "anthropic", Model: "m", APIKey: "k"})
	if err != nil {
		t.Fatalf("New(anthropic) returned %v", err)
	}
	if _, ok := c.(*AnthropicClient); !ok {
		t.Errorf("New(anthropic) = %T, want *AnthropicClient", c)
	}

	if _, err := New(Config{Name: "cohere"}); err == nil {
		t.Error("New(cohere) returned nil error, want unknown provider error")
	}
}
