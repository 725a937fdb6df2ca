package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Store. It holds every record in a map and
// answers searches by brute-force cosine similarity, which is plenty for
// tests and small local corpora.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Upsert implements Store.
func (m *Memory) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

// Search implements Store. Ties on score break by record ID so results
// are stable across runs.
func (m *Memory) Search(_ context.Context, embedding []float32, topK int, classScope string) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		id string
		Result
	}
	candidates := make([]scored, 0, len(m.records))
	for id, r := range m.records {
		if !visibleTo(classScope, r.Metadata.ClassCode) {
			continue
		}
		candidates = append(candidates, scored{
			id: id,
			Result: Result{
				Content:  r.Content,
				Metadata: r.Metadata,
				Score:    cosine(embedding, r.Embedding),
			},
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].id < candidates[j].id
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = c.Result
	}
	return results, nil
}

// DeleteByFileID implements Store.
func (m *Memory) DeleteByFileID(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records {
		if r.Metadata.FileID == fileID {
			delete(m.records, id)
		}
	}
	return nil
}

// Close implements Store.
func (*Memory) Close() error { return nil }

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func cosine(a, b []float32) float64 {
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
