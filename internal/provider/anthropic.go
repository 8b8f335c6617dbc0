package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// AnthropicClient is Variant B: a single prompt string sent through the
// Anthropic Messages API, with the first text block as the response.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates the Anthropic variant from cfg.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Classify implements Classifier.
func (c *AnthropicClient) Classify(ctx context.Context, item Item) (Enrichment, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildSinglePrompt(item))),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return Enrichment{}, &StatusError{Code: apierr.StatusCode, Body: apierr.Error()}
		}
		return Enrichment{}, fmt.Errorf("anthropic request: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return parseEnrichment(block.Text)
		}
	}
	return Enrichment{}, &ParseError{Raw: "no text content in response"}
}
