// Package vectorstore persists embedded document chunks and serves
// similarity search over them. Three backends share one interface:
// PostgreSQL with pgvector, Qdrant over gRPC, and an in-memory store
// for tests and local runs.
package vectorstore

import "context"

// ScopeAdmin marks a chunk as visible to every class.
const ScopeAdmin = "admin"

// Metadata describes where a chunk came from and how it was classified.
type Metadata struct {
	FileID      string `json:"file_id"`
	ClassCode   string `json:"class_code,omitempty"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
	ChunkIndex  int    `json:"chunk_index"`
}

// Record is a chunk ready to be stored: its text, its embedding and its
// provenance metadata.
type Record struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  Metadata
}

// Result is a search hit. Score is cosine similarity in [0, 1] where
// 1 means identical direction.
type Result struct {
	Content  string
	Metadata Metadata
	Score    float64
}

// Store is the persistence contract shared by all backends.
//
// Search applies class scoping: with an empty classScope every chunk is
// a candidate; otherwise only chunks whose class code equals classScope,
// equals ScopeAdmin, or is unset are visible.
type Store interface {
	// Upsert writes records, replacing any existing record with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to topK chunks most similar to the embedding,
	// ordered by descending score with deterministic tie-breaking.
	Search(ctx context.Context, embedding []float32, topK int, classScope string) ([]Result, error)

	// DeleteByFileID removes every chunk ingested from the given file.
	DeleteByFileID(ctx context.Context, fileID string) error

	// Close releases backend resources.
	Close() error
}

// visibleTo reports whether a chunk with the given class code is
// searchable under the caller's class scope.
func visibleTo(classScope, classCode string) bool {
	if classScope == "" {
		return true
	}
	return classCode == "" || classCode == classScope || classCode == ScopeAdmin
}
