package vectorstore

import (
	"context"
	"testing"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	records := []Record{
		{
			ID:        "a",
			Content:   "calendário de provas",
			Embedding: []float32{1, 0, 0},
			Metadata:  Metadata{FileID: "f1", ClassCode: "INF2024"},
		},
		{
			ID:        "b",
			Content:   "regimento geral",
			Embedding: []float32{0.9, 0.1, 0},
			Metadata:  Metadata{FileID: "f1", ClassCode: ScopeAdmin},
		},
		{
			ID:        "c",
			Content:   "horário de monitoria",
			Embedding: []float32{0.8, 0.2, 0},
			Metadata:  Metadata{FileID: "f2"},
		},
		{
			ID:        "d",
			Content:   "edital de outra turma",
			Embedding: []float32{0.7, 0.3, 0},
			Metadata:  Metadata{FileID: "f3", ClassCode: "ADM2023"},
		},
	}
	if err := m.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return m
}

func TestMemorySearchOrdersByScore(t *testing.T) {
	m := seedMemory(t)

	results, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results out of order at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
	if results[0].Content != "calendário de provas" {
		t.Errorf("best match = %q, want the aligned vector", results[0].Content)
	}
}

func TestMemorySearchScopeFilter(t *testing.T) {
	m := seedMemory(t)

	results, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, "INF2024")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	// Own class, admin and unscoped chunks are visible; ADM2023 is not.
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(results), results)
	}
	for _, r := range results {
		if r.Metadata.ClassCode == "ADM2023" {
			t.Errorf("foreign class leaked into results: %+v", r)
		}
	}
}

func TestMemorySearchEmptyScopeSeesEverything(t *testing.T) {
	m := seedMemory(t)

	results, err := m.Search(context.Background(), []float32{0, 1, 0}, 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Errorf("empty scope got %d results, want all 4", len(results))
	}
}

func TestMemorySearchTopK(t *testing.T) {
	m := seedMemory(t)

	results, err := m.Search(context.Background(), []float32{1, 0, 0}, 2, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want topK=2", len(results))
	}

	results, err = m.Search(context.Background(), []float32{1, 0, 0}, 0, "")
	if err != nil {
		t.Fatalf("Search topK=0: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("topK=0 returned %d results", len(results))
	}
}

func TestMemoryUpsertReplacesByID(t *testing.T) {
	m := seedMemory(t)

	err := m.Upsert(context.Background(), []Record{{
		ID:        "a",
		Content:   "calendário atualizado",
		Embedding: []float32{1, 0, 0},
		Metadata:  Metadata{FileID: "f1", ClassCode: "INF2024"},
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if m.Len() != 4 {
		t.Fatalf("Len = %d after replacing an existing ID, want 4", m.Len())
	}

	results, err := m.Search(context.Background(), []float32{1, 0, 0}, 1, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Content != "calendário atualizado" {
		t.Errorf("got %q, want the replaced content", results[0].Content)
	}
}

func TestMemoryDeleteByFileID(t *testing.T) {
	m := seedMemory(t)

	if err := m.DeleteByFileID(context.Background(), "f1"); err != nil {
		t.Fatalf("DeleteByFileID: %v", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d after deleting f1, want 2", m.Len())
	}

	results, err := m.Search(context.Background(), []float32{1, 0, 0}, 10, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Metadata.FileID == "f1" {
			t.Errorf("deleted file still searchable: %+v", r)
		}
	}
}

func TestMemoryDeleteByFileIDIdempotent(t *testing.T) {
	m := seedMemory(t)

	if err := m.DeleteByFileID(context.Background(), "f1"); err != nil {
		t.Fatalf("DeleteByFileID: %v", err)
	}
	if err := m.DeleteByFileID(context.Background(), "f1"); err != nil {
		t.Fatalf("second DeleteByFileID: %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d after double delete, want 2", m.Len())
	}

	if err := m.DeleteByFileID(context.Background(), "nunca-ingerido"); err != nil {
		t.Fatalf("DeleteByFileID on absent file id: %v", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d after deleting an absent file id, want 2", m.Len())
	}
}

func TestVisibleTo(t *testing.T) {
	tests := []struct {
		name      string
		scope     string
		classCode string
		want      bool
	}{
		{"empty scope sees scoped chunk", "", "INF2024", true},
		{"empty scope sees unscoped chunk", "", "", true},
		{"own class", "INF2024", "INF2024", true},
		{"admin chunk", "INF2024", ScopeAdmin, true},
		{"unscoped chunk", "INF2024", "", true},
		{"foreign class", "INF2024", "ADM2023", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visibleTo(tt.scope, tt.classCode); got != tt.want {
				t.Errorf("visibleTo(%q, %q) = %v, want %v", tt.scope, tt.classCode, got, tt.want)
			}
		})
	}
}
