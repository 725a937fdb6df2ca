package usage_test

import (
	"context"
	"testing"

	"github.com/sagefy-edu/sagefy/internal/testutil"
	"github.com/sagefy-edu/sagefy/internal/usage"
)

func TestPostgresSinkIntegration(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	sink := usage.NewPostgresSink(pool)
	ctx := context.Background()

	rec := usage.Record{
		ID:               "m1",
		RequestID:        "req-1",
		UserEmail:        "aluno@aluno.ifsp.edu.br",
		UserRole:         "STUDENT",
		ClassCode:        "INF2024",
		Categories:       []string{"Avaliações"},
		Subcategories:    []string{"Calendário"},
		Prompt:           "quando é a prova?",
		Response:         "a prova final será em dezembro",
		PromptTokens:     120,
		CompletionTokens: 30,
		TotalTokens:      150,
	}
	if err := sink.Log(ctx, rec); err != nil {
		t.Fatalf("Log: %v", err)
	}

	// Same request id again is a no-op, not an error.
	if err := sink.Log(ctx, rec); err != nil {
		t.Fatalf("Log duplicate: %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM usage_records WHERE request_id = 'req-1'`).Scan(&count); err != nil {
		t.Fatalf("counting records: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d rows, want 1", count)
	}

	var totalTokens int
	var categories string
	err := pool.QueryRow(ctx,
		`SELECT total_tokens, categories FROM usage_records WHERE request_id = 'req-1'`).
		Scan(&totalTokens, &categories)
	if err != nil {
		t.Fatalf("reading record: %v", err)
	}
	if totalTokens != 150 || categories != "Avaliações" {
		t.Errorf("got tokens=%d categories=%q", totalTokens, categories)
	}
}
