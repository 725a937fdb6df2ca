package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/sagefy-edu/sagefy/internal/llm"
)

// minSpansForDistribution is the smallest number of sentence spans for
// which a distance distribution is meaningful. Below this the whole text
// becomes a single block.
const minSpansForDistribution = 3

// SemanticConfig tunes the breakpoint heuristic.
type SemanticConfig struct {
	// BreakpointPercentile of the consecutive-span distance distribution
	// above which a block boundary is inserted.
	BreakpointPercentile float64

	// MinBlockSize is the minimum block length in characters. Shorter
	// blocks are merged into their successor.
	MinBlockSize int
}

// Semantic splits text into blocks whose sentences are mutually more
// similar than they are to neighboring blocks.
type Semantic struct {
	client llm.Client
	cfg    SemanticConfig
	logger *slog.Logger
}

// NewSemantic creates a semantic chunker backed by the given embedding client.
func NewSemantic(client llm.Client, cfg SemanticConfig, logger *slog.Logger) *Semantic {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BreakpointPercentile <= 0 || cfg.BreakpointPercentile > 100 {
		cfg.BreakpointPercentile = 95
	}
	return &Semantic{client: client, cfg: cfg, logger: logger}
}

// Split returns ordered blocks covering the input exactly once, in order,
// without overlap. The embedding client is called once for all spans.
func (s *Semantic) Split(ctx context.Context, text string) ([]string, error) {
	spans := splitSentences(text)
	if len(spans) < minSpansForDistribution {
		return []string{text}, nil
	}

	vectors, err := s.client.Embed(ctx, spans)
	if err != nil {
		return nil, fmt.Errorf("embedding %d spans: %w", len(spans), err)
	}

	distances := make([]float64, len(vectors)-1)
	for i := 0; i < len(vectors)-1; i++ {
		distances[i] = 1 - cosineSimilarity(vectors[i], vectors[i+1])
	}

	threshold := percentile(distances, s.cfg.BreakpointPercentile)

	var blocks []string
	var current []string
	for i, span := range spans {
		current = append(current, span)
		if i < len(distances) && distances[i] > threshold {
			blocks = append(blocks, joinSpans(current))
			current = nil
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, joinSpans(current))
	}

	blocks = s.mergeShortBlocks(blocks)

	s.logger.Debug("semantic split",
		"spans", len(spans),
		"blocks", len(blocks),
		"threshold", threshold)

	return blocks, nil
}

// mergeShortBlocks merges blocks below MinBlockSize into the following
// block (or the preceding one for a short tail).
func (s *Semantic) mergeShortBlocks(blocks []string) []string {
	if s.cfg.MinBlockSize <= 0 || len(blocks) < 2 {
		return blocks
	}

	var merged []string
	carry := ""
	for _, b := range blocks {
		if carry != "" {
			b = carry + " " + b
			carry = ""
		}
		if len(b) < s.cfg.MinBlockSize {
			carry = b
			continue
		}
		merged = append(merged, b)
	}
	if carry != "" {
		if len(merged) > 0 {
			merged[len(merged)-1] += " " + carry
		} else {
			merged = []string{carry}
		}
	}
	return merged
}

func joinSpans(spans []string) string {
	out := ""
	for i, s := range spans {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched or zero-length vectors yield 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// percentile returns the p-th percentile of values using nearest-rank on a
// sorted copy.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
