package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sagefy-edu/sagefy/internal/chunk"
	"github.com/sagefy-edu/sagefy/internal/log"
	"github.com/sagefy-edu/sagefy/internal/tagger"
	"github.com/sagefy-edu/sagefy/internal/testutil"
	"github.com/sagefy-edu/sagefy/internal/vectorstore"
)

func newPipeline(t *testing.T, client *testutil.FakeLLM, store vectorstore.Store) *Pipeline {
	t.Helper()
	logger := log.NewNop()
	semantic := chunk.NewSemantic(client, chunk.SemanticConfig{BreakpointPercentile: 95}, logger)
	splitter := chunk.NewSplitter(chunk.SplitterConfig{ChunkSize: 64, OverlapFraction: 0.12})
	tg := tagger.New(client, tagger.Config{}, logger)
	return New(semantic, splitter, tg, client, store, logger)
}

func tagResponse() string {
	return `{"tags": ["curso"], "category": "Curso", "subcategory": "Geral"}`
}

func TestIngestIndexesTextDocument(t *testing.T) {
	client := testutil.NewFakeLLM("")
	client.AddResponse("Analise o seguinte texto", tagResponse())
	store := vectorstore.NewMemory()
	p := newPipeline(t, client, store)

	doc := RawDocument{
		Name:      "guia.txt",
		Data:      []byte("O curso é EaD. As aulas são semanais. A prova é presencial."),
		ClassCode: "INF2024",
	}
	count, err := p.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if count == 0 {
		t.Fatal("no chunks indexed")
	}
	if store.Len() != count {
		t.Errorf("store has %d records, Ingest reported %d", store.Len(), count)
	}

	results, err := store.Search(context.Background(), testutil.HashVector("qualquer", 8), count, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Metadata.FileID != "guia.txt" {
			t.Errorf("file id = %q", r.Metadata.FileID)
		}
		if r.Metadata.ClassCode != "INF2024" {
			t.Errorf("class code = %q", r.Metadata.ClassCode)
		}
		if r.Metadata.Category != "Curso" || r.Metadata.Subcategory != "Geral" {
			t.Errorf("tags not applied: %+v", r.Metadata)
		}
	}
}

func TestIngestTaggerFailureDegrades(t *testing.T) {
	// No tag rule registered: the tagger gets unparseable text and must
	// fall back instead of failing the document.
	client := testutil.NewFakeLLM("sem json aqui")
	store := vectorstore.NewMemory()
	p := newPipeline(t, client, store)

	doc := RawDocument{Name: "guia.txt", Data: []byte("O curso é EaD.")}
	count, err := p.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	results, err := store.Search(context.Background(), testutil.HashVector("x", 8), count, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Metadata.Category != tagger.FallbackCategory {
			t.Errorf("category = %q, want fallback", r.Metadata.Category)
		}
	}
}

func TestIngestReplacesPreviousVersion(t *testing.T) {
	client := testutil.NewFakeLLM("")
	client.AddResponse("Analise o seguinte texto", tagResponse())
	store := vectorstore.NewMemory()
	p := newPipeline(t, client, store)

	first := RawDocument{Name: "guia.txt", Data: []byte("Versão antiga do documento. Tem duas frases.")}
	if _, err := p.Ingest(context.Background(), first); err != nil {
		t.Fatalf("Ingest old: %v", err)
	}

	second := RawDocument{Name: "guia.txt", Data: []byte("Versão nova.")}
	count, err := p.Ingest(context.Background(), second)
	if err != nil {
		t.Fatalf("Ingest new: %v", err)
	}
	if store.Len() != count {
		t.Errorf("store has %d records, want only the %d new chunks", store.Len(), count)
	}

	results, err := store.Search(context.Background(), testutil.HashVector("x", 8), 100, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if strings.Contains(r.Content, "antiga") {
			t.Errorf("stale chunk survived re-ingestion: %q", r.Content)
		}
	}
}

func TestIngestUnsupportedFormat(t *testing.T) {
	client := testutil.NewFakeLLM("")
	p := newPipeline(t, client, vectorstore.NewMemory())

	_, err := p.Ingest(context.Background(), RawDocument{Name: "planilha.xlsx", Data: []byte("x")})
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestIngestEmbedErrorSurfaces(t *testing.T) {
	client := testutil.NewFakeLLM("")
	client.AddResponse("Analise o seguinte texto", tagResponse())
	client.EmbedErr = errors.New("embedder down")
	p := newPipeline(t, client, vectorstore.NewMemory())

	_, err := p.Ingest(context.Background(), RawDocument{Name: "guia.txt", Data: []byte("Uma frase.")})
	if err == nil {
		t.Fatal("expected embed failure to surface")
	}
}

func TestIngestAllIsolatesFailures(t *testing.T) {
	client := testutil.NewFakeLLM("")
	client.AddResponse("Analise o seguinte texto", tagResponse())
	store := vectorstore.NewMemory()
	p := newPipeline(t, client, store)

	docs := []RawDocument{
		{Name: "ok.txt", Data: []byte("Documento válido.")},
		{Name: "ruim.xlsx", Data: []byte("formato não suportado")},
		{Name: "ok2.md", Data: []byte("Outro documento válido.")},
	}
	if ok := p.IngestAll(context.Background(), docs); ok != 2 {
		t.Errorf("IngestAll = %d, want 2", ok)
	}
	if store.Len() == 0 {
		t.Error("valid documents were not indexed")
	}
}
