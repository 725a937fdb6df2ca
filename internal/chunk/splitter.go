package chunk

import (
	"math"
	"strings"
)

// defaultSeparators is the split priority: paragraph break, line break,
// sentence end, then single space. Token-level windowing is the last
// resort when no separator yields small enough pieces.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// SplitterConfig bounds sub-chunk size and overlap.
type SplitterConfig struct {
	// ChunkSize is the maximum sub-chunk length in tokens.
	ChunkSize int

	// OverlapFraction of ChunkSize carried from the end of one sub-chunk
	// into the start of the next, in tokens.
	OverlapFraction float64
}

// Splitter divides semantic blocks into token-bounded, overlap-preserving
// sub-chunks. Output text is flattened: every whitespace run becomes a
// single space.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. The overlap is rounded to whole tokens.
func NewSplitter(cfg SplitterConfig) *Splitter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}
	overlap := int(math.Round(float64(cfg.ChunkSize) * cfg.OverlapFraction))
	if overlap >= cfg.ChunkSize {
		overlap = cfg.ChunkSize / 2
	}
	return &Splitter{chunkSize: cfg.ChunkSize, overlap: overlap}
}

// Overlap returns the configured overlap in tokens.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts one semantic block into sub-chunks of at most ChunkSize
// tokens. Consecutive sub-chunks share exactly the overlap: each one after
// the first starts with the last Overlap() tokens of its predecessor.
func (s *Splitter) Split(block string) []string {
	if strings.TrimSpace(block) == "" {
		return nil
	}

	// Pieces are bounded to chunkSize-overlap so a full overlap seed always
	// fits in front of any piece.
	pieces := s.splitRecursive(block, defaultSeparators)

	var chunks []string
	var current []string
	for _, piece := range pieces {
		tokens := Tokens(piece)
		if len(tokens) == 0 {
			continue
		}
		if len(current)+len(tokens) > s.chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			// Seed the next chunk with the tail of this one.
			seed := current
			if len(seed) > s.overlap {
				seed = seed[len(seed)-s.overlap:]
			}
			current = append([]string(nil), seed...)
		}
		current = append(current, tokens...)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// pieceBudget is the token bound for atomic pieces.
func (s *Splitter) pieceBudget() int {
	b := s.chunkSize - s.overlap
	if b < 1 {
		b = 1
	}
	return b
}

// splitRecursive splits text on the prioritized separators until every
// piece fits the piece budget, falling back to token windows.
func (s *Splitter) splitRecursive(text string, separators []string) []string {
	if CountTokens(text) <= s.pieceBudget() {
		return []string{text}
	}
	if len(separators) == 0 {
		return s.tokenWindows(text)
	}

	// SplitAfter keeps the separator attached, so sentence punctuation is
	// never lost and the token sequence is preserved.
	parts := strings.SplitAfter(text, separators[0])
	if len(parts) == 1 {
		return s.splitRecursive(text, separators[1:])
	}

	var pieces []string
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if CountTokens(part) <= s.pieceBudget() {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, s.splitRecursive(part, separators[1:])...)
	}
	return pieces
}

// tokenWindows is the character-level fallback: fixed windows of the piece
// budget, in tokens.
func (s *Splitter) tokenWindows(text string) []string {
	tokens := Tokens(text)
	budget := s.pieceBudget()

	var pieces []string
	for start := 0; start < len(tokens); start += budget {
		end := start + budget
		if end > len(tokens) {
			end = len(tokens)
		}
		pieces = append(pieces, strings.Join(tokens[start:end], " "))
	}
	return pieces
}
