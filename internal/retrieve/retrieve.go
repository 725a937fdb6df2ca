// Package retrieve turns a question into scope-filtered search results,
// optionally routing the query embedding through a hypothetical answer
// (HyDE) first.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagefy-edu/sagefy/internal/llm"
	"github.com/sagefy-edu/sagefy/internal/prompt"
	"github.com/sagefy-edu/sagefy/internal/vectorstore"
)

// Retrieval strategies.
const (
	// StrategyHyDE embeds a model-written hypothetical answer instead of
	// the raw question. Hypothetical answers live in the same embedding
	// neighborhood as real course material, so recall improves for short
	// or vaguely worded questions.
	StrategyHyDE = "hyde"

	// StrategyDirect embeds the question as-is.
	StrategyDirect = "direct"
)

const (
	hydeMaxTokens   = 400
	hydeTemperature = 0.7
)

// ErrEmptyHypothesis is returned when the model produces no hypothetical
// answer to embed.
var ErrEmptyHypothesis = errors.New("empty hypothetical answer")

// Config tunes retrieval.
type Config struct {
	Strategy string
	TopK     int
	Timeout  time.Duration
}

// Retriever resolves a question to the chunks most likely to answer it.
// Failures surface as errors, never as silently empty results.
type Retriever struct {
	client llm.Client
	store  vectorstore.Store
	cfg    Config
	logger *slog.Logger
}

// New creates a Retriever.
func New(client llm.Client, store vectorstore.Store, cfg Config, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyHyDE
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Retriever{client: client, store: store, cfg: cfg, logger: logger}
}

// Retrieve returns up to TopK chunks visible under classScope, most
// similar to the question (or to its hypothetical answer under HyDE).
func (r *Retriever) Retrieve(ctx context.Context, question, classScope string) ([]vectorstore.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	queryText := question
	if r.cfg.Strategy == StrategyHyDE {
		hypothesis, err := r.hypothesize(ctx, question)
		if err != nil {
			return nil, err
		}
		queryText = hypothesis
	}

	vectors, err := r.client.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	results, err := r.store.Search(ctx, vectors[0], r.cfg.TopK, classScope)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	r.logger.Debug("retrieved chunks",
		"strategy", r.cfg.Strategy,
		"results", len(results),
		"class_scope", classScope)
	return results, nil
}

// hypothesize writes a plausible answer to the question in the voice of
// the institutional assistant.
func (r *Retriever) hypothesize(ctx context.Context, question string) (string, error) {
	completion, err := r.client.Complete(ctx,
		prompt.DefaultPolicy+"\n\nPergunta do usuário: "+question,
		llm.CompleteOptions{
			MaxTokens:   hydeMaxTokens,
			Temperature: hydeTemperature,
		})
	if err != nil {
		return "", fmt.Errorf("generating hypothetical answer: %w", err)
	}
	if completion.Text == "" {
		return "", ErrEmptyHypothesis
	}
	return completion.Text, nil
}
