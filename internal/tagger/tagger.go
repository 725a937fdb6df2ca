// Package tagger classifies chunks of course material with tags, a
// category and a subcategory before they are indexed.
package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/sagefy-edu/sagefy/internal/llm"
)

// FallbackCategory is used whenever classification fails. Tagging is
// best effort; a chunk is never dropped because its tags are missing.
const FallbackCategory = "Outros"

const (
	tagMaxTokens   = 300
	tagTemperature = 0.6
)

// Tags is the classification of one chunk.
type Tags struct {
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
}

// Config tunes the tagger.
type Config struct {
	// Timeout bounds each classification call.
	Timeout time.Duration

	// RatePerSecond caps classification calls across the whole process,
	// keeping bulk ingestion under provider quotas. Zero disables the cap.
	RatePerSecond float64
}

// Tagger asks the model for chunk metadata. Failures degrade to the
// fallback category instead of propagating.
type Tagger struct {
	client  llm.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Tagger.
func New(client llm.Client, cfg Config, logger *slog.Logger) *Tagger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Tagger{client: client, limiter: limiter, timeout: cfg.Timeout, logger: logger}
}

func fallback() Tags {
	return Tags{Tags: []string{}, Category: FallbackCategory, Subcategory: FallbackCategory}
}

// Tag classifies one chunk of text. Classification failures return the
// fallback tags and a nil error; only a canceled context aborts.
func (t *Tagger) Tag(ctx context.Context, text string) (Tags, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Tags{}, fmt.Errorf("waiting for tagger rate limit: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	completion, err := t.client.Complete(callCtx, buildPrompt(text), llm.CompleteOptions{
		MaxTokens:   tagMaxTokens,
		Temperature: tagTemperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Tags{}, ctx.Err()
		}
		t.logger.Warn("chunk classification failed, using fallback", "error", err)
		return fallback(), nil
	}

	var tags Tags
	if err := json.Unmarshal([]byte(llm.StripCodeFences(completion.Text)), &tags); err != nil {
		t.logger.Warn("unparseable chunk classification, using fallback",
			"error", err, "raw", completion.Text)
		return fallback(), nil
	}

	if tags.Category == "" {
		tags.Category = FallbackCategory
	}
	if tags.Subcategory == "" {
		tags.Subcategory = FallbackCategory
	}
	if tags.Tags == nil {
		tags.Tags = []string{}
	}
	return tags, nil
}

func buildPrompt(text string) string {
	return "Analise o seguinte texto e identifique os seguintes metadados:\n" +
		"- Tags relevantes\n" +
		"- Categoria principal\n" +
		"- Subcategoria\n" +
		"Texto: " + text + "\n" +
		`Responda no formato JSON: {"tags": ["..."], "category": "...", "subcategory": "..."}`
}
