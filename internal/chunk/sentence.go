package chunk

import (
	"strings"
	"unicode"
)

// splitSentences splits text into sentence spans on punctuation and
// newlines. Spans are trimmed; empty spans are dropped.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			// Only break when the sentence actually ends: at a newline, at
			// the end of input, or before whitespace.
			if r == '\n' || i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
