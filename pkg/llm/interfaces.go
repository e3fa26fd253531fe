// Package llm provides clients for the external text-generation service
// used to turn analytics questions into SQL and chart specifications.
package llm

import "context"

// GenerateResult is one completed text generation with token accounting.
type GenerateResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the interface over a text-generation provider. Implementations
// must bound the call with their configured request timeout so a stalled
// provider cannot hang a request indefinitely.
type Client interface {
	// GenerateResponse sends a system instruction plus a user message and
	// returns the completion text with token usage.
	GenerateResponse(ctx context.Context, prompt, systemMessage string, temperature float64) (*GenerateResult, error)

	// Model returns the configured model name.
	Model() string
}

// Compile-time interface checks.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*MockClient)(nil)
)
