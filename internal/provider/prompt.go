package provider

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a customer-service call analyst. You classify transcribed support calls.

Return ONLY a JSON object with exactly these fields:
{
  "categories": ["one or more category labels describing the call topics"],
  "sentiment": "positive" | "neutral" | "negative",
  "summary": "one or two sentence summary of the call"
}

Rules:
- A call may belong to several categories; list each one.
- Sentiment reflects the customer's overall attitude, not the agent's.
- Do not invent details that are not in the transcript.
- Do not wrap the JSON in markdown fences or add commentary.`

// buildUserPrompt renders the transcript plus optional call context.
func buildUserPrompt(item Item) string {
	var b strings.Builder
	if item.CallReason != "" {
		fmt.Fprintf(&b, "Stated call reason: %s\n", item.CallReason)
	}
	if item.IssuesDiscussed != "" {
		fmt.Fprintf(&b, "Issues discussed: %s\n", item.IssuesDiscussed)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("Transcript:\n")
	b.WriteString(item.Transcript)
	return b.String()
}

// buildSinglePrompt folds the system instructions and user content into one
// prompt string for providers that take a single generative-text call.
func buildSinglePrompt(item Item) string {
	return systemPrompt + "\n\n" + buildUserPrompt(item)
}
