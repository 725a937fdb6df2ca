// Package llm defines the language-model capabilities consumed by the
// ingestion and query pipelines, and a Genkit-backed implementation.
//
// The pipelines depend on the Client interface rather than on Genkit
// directly, so tests can substitute deterministic fakes.
package llm

import "context"

// Usage exposes token accounting for a completion call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the result of a text completion call.
type Completion struct {
	Text  string
	Usage Usage
}

// CompleteOptions bound a completion call.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
}

// Client is the language-model capability surface used by the pipelines.
// All methods are blocking; callers bound them with context timeouts.
type Client interface {
	// Complete generates a text completion for the prompt.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (*Completion, error)

	// Embed returns one fixed-length vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
