// Package chunk splits normalized document text into topic-coherent,
// token-bounded pieces for vector indexing.
//
// Two stages: the semantic chunker groups sentences into blocks using an
// embedding-distance breakpoint heuristic, then the bounded sub-splitter
// cuts each block down to the configured token budget with overlap.
package chunk

import "strings"

// Tokens splits text into whitespace-delimited tokens.
//
// This is the single token-counting method for the whole pipeline. Stored
// chunk boundaries are only reproducible if every component counts tokens
// the same way, so nothing else in the repository may count tokens
// differently.
func Tokens(text string) []string {
	return strings.Fields(text)
}

// CountTokens returns the number of tokens in text.
func CountTokens(text string) int {
	return len(Tokens(text))
}
