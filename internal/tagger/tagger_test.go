package tagger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sagefy-edu/sagefy/internal/log"
	"github.com/sagefy-edu/sagefy/internal/testutil"
)

func TestTagParsesClassification(t *testing.T) {
	client := testutil.NewFakeLLM(`{"tags": ["provas", "datas"], "category": "Avaliações", "subcategory": "Calendário"}`)
	tg := New(client, Config{}, log.NewNop())

	tags, err := tg.Tag(context.Background(), "a prova final será em dezembro")
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if tags.Category != "Avaliações" || tags.Subcategory != "Calendário" {
		t.Errorf("got %+v", tags)
	}
	if len(tags.Tags) != 2 {
		t.Errorf("tags = %v", tags.Tags)
	}
}

func TestTagFallbackOnGarbage(t *testing.T) {
	client := testutil.NewFakeLLM("este texto fala sobre provas")
	tg := New(client, Config{}, log.NewNop())

	tags, err := tg.Tag(context.Background(), "qualquer texto")
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if tags.Category != FallbackCategory || tags.Subcategory != FallbackCategory {
		t.Errorf("got %+v, want fallback", tags)
	}
}

func TestTagFallbackOnClientError(t *testing.T) {
	client := testutil.NewFakeLLM("")
	client.CompleteErr = errors.New("model unavailable")
	tg := New(client, Config{}, log.NewNop())

	tags, err := tg.Tag(context.Background(), "texto")
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if tags.Category != FallbackCategory {
		t.Errorf("got %+v, want fallback", tags)
	}
}

func TestTagFillsMissingFields(t *testing.T) {
	client := testutil.NewFakeLLM(`{"tags": ["estágio"], "category": "Estágios"}`)
	tg := New(client, Config{}, log.NewNop())

	tags, err := tg.Tag(context.Background(), "texto sobre estágio")
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if tags.Category != "Estágios" {
		t.Errorf("category = %q", tags.Category)
	}
	if tags.Subcategory != FallbackCategory {
		t.Errorf("empty subcategory should fall back, got %q", tags.Subcategory)
	}
}

func TestTagRespectsRateLimit(t *testing.T) {
	client := testutil.NewFakeLLM(`{"tags": [], "category": "Outros", "subcategory": "Outros"}`)
	tg := New(client, Config{RatePerSecond: 20}, log.NewNop())

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := tg.Tag(context.Background(), "texto"); err != nil {
			t.Fatalf("Tag: %v", err)
		}
	}
	// 3 calls at 20/s with burst 1 need at least two 50ms intervals.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("3 calls finished in %v, limiter not applied", elapsed)
	}
}

func TestTagCanceledContext(t *testing.T) {
	client := testutil.NewFakeLLM(`{}`)
	tg := New(client, Config{RatePerSecond: 1}, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tg.Tag(ctx, "texto"); err == nil {
		t.Error("expected error for canceled context")
	}
}
