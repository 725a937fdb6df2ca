package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Genkit implements Client on top of a Genkit runtime.
type Genkit struct {
	g        *genkit.Genkit
	model    string
	embedder ai.Embedder
}

// NewGenkit creates a Genkit-backed client for the given completion model
// and embedder.
func NewGenkit(g *genkit.Genkit, model string, embedder ai.Embedder) *Genkit {
	return &Genkit{g: g, model: model, embedder: embedder}
}

// Complete generates a completion via genkit.Generate.
func (c *Genkit) Complete(ctx context.Context, prompt string, opts CompleteOptions) (*Completion, error) {
	genOpts := []ai.GenerateOption{
		ai.WithModelName(c.model),
		ai.WithPrompt(prompt),
	}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		genOpts = append(genOpts, ai.WithConfig(&ai.GenerationCommonConfig{
			MaxOutputTokens: opts.MaxTokens,
			Temperature:     opts.Temperature,
		}))
	}

	resp, err := genkit.Generate(ctx, c.g, genOpts...)
	if err != nil {
		return nil, fmt.Errorf("generating completion: %w", err)
	}

	out := &Completion{Text: resp.Text()}
	if resp.Usage != nil {
		out.Usage = Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

// Embed generates embeddings for all texts in one request.
func (c *Genkit) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = e.Embedding
	}
	return vectors, nil
}
