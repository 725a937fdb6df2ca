// Package ingest runs the document pipeline: extract text, split it
// semantically, bound the chunk sizes, classify each chunk, embed and
// index the result.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sagefy-edu/sagefy/internal/chunk"
	"github.com/sagefy-edu/sagefy/internal/extract"
	"github.com/sagefy-edu/sagefy/internal/llm"
	"github.com/sagefy-edu/sagefy/internal/tagger"
	"github.com/sagefy-edu/sagefy/internal/vectorstore"
)

// RawDocument is one uploaded course file.
type RawDocument struct {
	// Name is the file name, extension included. It doubles as the
	// default FileID.
	Name string

	// Data is the raw file content.
	Data []byte

	// ClassCode scopes the resulting chunks to one class. Empty or
	// vectorstore.ScopeAdmin chunks are visible to every class.
	ClassCode string

	// FileID overrides the identity used for re-ingestion. Defaults to Name.
	FileID string
}

func (d RawDocument) fileID() string {
	if d.FileID != "" {
		return d.FileID
	}
	return d.Name
}

// Pipeline ingests documents into the vector index.
type Pipeline struct {
	semantic *chunk.Semantic
	splitter *chunk.Splitter
	tagger   *tagger.Tagger
	client   llm.Client
	store    vectorstore.Store
	logger   *slog.Logger
}

// New creates a Pipeline.
func New(semantic *chunk.Semantic, splitter *chunk.Splitter, tg *tagger.Tagger, client llm.Client, store vectorstore.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		semantic: semantic,
		splitter: splitter,
		tagger:   tg,
		client:   client,
		store:    store,
		logger:   logger,
	}
}

// Ingest processes one document and returns the number of chunks
// indexed. Previously indexed chunks of the same file are replaced, so
// re-uploading a corrected document never leaves stale chunks behind.
func (p *Pipeline) Ingest(ctx context.Context, doc RawDocument) (int, error) {
	ext := strings.ToLower(filepath.Ext(doc.Name))

	text, err := extract.Extract(doc.Data, ext)
	if err != nil {
		return 0, fmt.Errorf("extracting %q: %w", doc.Name, err)
	}
	if text == "" {
		p.logger.Warn("document produced no text", "file", doc.Name)
		return 0, nil
	}

	blocks, err := p.semantic.Split(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("chunking %q: %w", doc.Name, err)
	}

	var texts []string
	for _, block := range blocks {
		texts = append(texts, p.splitter.Split(block)...)
	}
	if len(texts) == 0 {
		p.logger.Warn("document produced no chunks", "file", doc.Name)
		return 0, nil
	}

	records := make([]vectorstore.Record, len(texts))
	for i, content := range texts {
		tags, err := p.tagger.Tag(ctx, content)
		if err != nil {
			return 0, fmt.Errorf("tagging chunk %d of %q: %w", i, doc.Name, err)
		}
		records[i] = vectorstore.Record{
			ID:      uuid.NewString(),
			Content: content,
			Metadata: vectorstore.Metadata{
				FileID:      doc.fileID(),
				ClassCode:   doc.ClassCode,
				Category:    tags.Category,
				Subcategory: tags.Subcategory,
				ChunkIndex:  i,
			},
		}
	}

	vectors, err := p.client.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks of %q: %w", len(texts), doc.Name, err)
	}
	if len(vectors) != len(records) {
		return 0, fmt.Errorf("embedding %q: got %d vectors for %d chunks", doc.Name, len(vectors), len(records))
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}

	if err := p.store.DeleteByFileID(ctx, doc.fileID()); err != nil {
		return 0, fmt.Errorf("purging previous chunks of %q: %w", doc.Name, err)
	}
	if err := p.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("indexing %q: %w", doc.Name, err)
	}

	p.logger.Info("document ingested",
		"file", doc.Name,
		"class_code", doc.ClassCode,
		"chunks", len(records))
	return len(records), nil
}

// IngestAll processes documents independently: a failing document is
// logged and skipped, the rest still index. Returns the number of
// documents that succeeded.
func (p *Pipeline) IngestAll(ctx context.Context, docs []RawDocument) int {
	ok := 0
	for _, doc := range docs {
		if ctx.Err() != nil {
			p.logger.Warn("ingestion aborted", "error", ctx.Err())
			return ok
		}
		if _, err := p.Ingest(ctx, doc); err != nil {
			p.logger.Error("document skipped", "file", doc.Name, "error", err)
			continue
		}
		ok++
	}
	return ok
}
