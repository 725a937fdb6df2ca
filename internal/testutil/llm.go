// Package testutil provides deterministic test doubles shared across the
// sagefy test suites.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/sagefy-edu/sagefy/internal/llm"
)

// FakeLLM is a deterministic llm.Client for tests. Completions are matched
// by substring patterns against the prompt, first match wins; embeddings
// are derived from a hash of the input text unless a fixed vector was
// registered for a prefix.
//
// Safe for concurrent use.
type FakeLLM struct {
	mu       sync.Mutex
	rules    []fakeRule
	fallback string
	vectors  []fakeVector
	calls    []string

	// CompleteErr, when set, fails every Complete call.
	CompleteErr error

	// EmbedErr, when set, fails every Embed call.
	EmbedErr error
}

type fakeRule struct {
	pattern  string
	response string
}

type fakeVector struct {
	prefix string
	vec    []float32
}

// NewFakeLLM creates a fake client that answers with fallback when no
// registered pattern matches.
func NewFakeLLM(fallback string) *FakeLLM {
	return &FakeLLM{fallback: fallback}
}

// AddResponse registers a pattern-response pair. A prompt containing the
// pattern (case-insensitive) gets the response. Registration order wins.
func (f *FakeLLM) AddResponse(pattern, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, fakeRule{pattern: strings.ToLower(pattern), response: response})
}

// SetVector pins the embedding returned for any text starting with prefix.
func (f *FakeLLM) SetVector(prefix string, vec []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, fakeVector{prefix: prefix, vec: vec})
}

// Calls returns a copy of all prompts passed to Complete.
func (f *FakeLLM) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]string, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// Complete implements llm.Client.
func (f *FakeLLM) Complete(_ context.Context, prompt string, _ llm.CompleteOptions) (*llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, prompt)
	if f.CompleteErr != nil {
		return nil, f.CompleteErr
	}

	response := f.fallback
	lower := strings.ToLower(prompt)
	for _, r := range f.rules {
		if strings.Contains(lower, r.pattern) {
			response = r.response
			break
		}
	}

	promptTokens := len(strings.Fields(prompt))
	completionTokens := len(strings.Fields(response))
	return &llm.Completion{
		Text: response,
		Usage: llm.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

// Embed implements llm.Client.
func (f *FakeLLM) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.EmbedErr != nil {
		return nil, f.EmbedErr
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectorFor(t)
	}
	return out, nil
}

func (f *FakeLLM) vectorFor(text string) []float32 {
	for _, v := range f.vectors {
		if strings.HasPrefix(text, v.prefix) {
			return v.vec
		}
	}
	return HashVector(text, 8)
}

// HashVector derives a deterministic unit vector of the given dimension
// from a hash of the text. Distinct texts get distinct directions, so
// similarity search over hashed vectors is stable across runs.
func HashVector(text string, dim int) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)

	var norm float64
	for i := 0; i < dim; i++ {
		bits := binary.BigEndian.Uint32(sum[(i*4)%len(sum):])
		v := float64(bits)/float64(math.MaxUint32)*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
