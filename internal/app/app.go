// Package app wires configuration, the AI runtime, the vector store and
// the pipelines into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagefy-edu/sagefy/api"
	"github.com/sagefy-edu/sagefy/db"
	"github.com/sagefy-edu/sagefy/internal/assistant"
	"github.com/sagefy-edu/sagefy/internal/chunk"
	"github.com/sagefy-edu/sagefy/internal/config"
	"github.com/sagefy-edu/sagefy/internal/gate"
	"github.com/sagefy-edu/sagefy/internal/ingest"
	"github.com/sagefy-edu/sagefy/internal/llm"
	"github.com/sagefy-edu/sagefy/internal/retrieve"
	"github.com/sagefy-edu/sagefy/internal/tagger"
	"github.com/sagefy-edu/sagefy/internal/usage"
	"github.com/sagefy-edu/sagefy/internal/vectorstore"
)

// embedDims is the dimension of the embedding model's vectors. The
// chunks table schema and the Qdrant collection are created to match.
const embedDims = 768

// App holds the wired application.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Client    llm.Client
	Store     vectorstore.Store
	Pipeline  *ingest.Pipeline
	Assistant *assistant.Assistant
	Server    *api.Server

	pool *pgxpool.Pool
}

// Setup builds the application from configuration. Callers own the
// returned App and must Close it.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.AI.EmbedderModel)
	client := llm.NewGenkit(g, cfg.AI.ModelName, embedder)
	logger.Info("AI runtime ready", "model", cfg.AI.ModelName, "embedder", cfg.AI.EmbedderModel)

	a := &App{Config: cfg, Logger: logger, Client: client}
	if err := a.setupStore(ctx); err != nil {
		return nil, err
	}

	var sink usage.Sink = usage.NopSink{}
	if a.pool != nil {
		sink = usage.NewPostgresSink(a.pool)
	}

	semantic := chunk.NewSemantic(client, chunk.SemanticConfig{
		BreakpointPercentile: cfg.Chunking.BreakpointPercentile,
		MinBlockSize:         cfg.Chunking.MinBlockSize,
	}, logger)
	splitter := chunk.NewSplitter(chunk.SplitterConfig{
		ChunkSize:       cfg.Chunking.ChunkSize,
		OverlapFraction: cfg.Chunking.OverlapFraction,
	})
	tg := tagger.New(client, tagger.Config{
		Timeout:       cfg.Tagger.Timeout,
		RatePerSecond: cfg.Tagger.RatePerSecond,
	}, logger)
	a.Pipeline = ingest.New(semantic, splitter, tg, client, a.Store, logger)

	gt := gate.New(client, gate.Config{
		FollowupsAsSmalltalk: cfg.Gate.FollowupsAsSmalltalk,
		Timeout:              cfg.Gate.Timeout,
	}, logger)
	retriever := retrieve.New(client, a.Store, retrieve.Config{
		Strategy: cfg.Retrieval.Strategy,
		TopK:     cfg.Retrieval.TopK,
		Timeout:  cfg.Retrieval.Timeout,
	}, logger)
	a.Assistant = assistant.New(gt, retriever, client, sink, logger)

	var pinger api.Pinger
	if a.pool != nil {
		pinger = a.pool
	}
	a.Server = api.NewServer(api.HeaderAuthenticator{}, a.Assistant, a.Pipeline, a.Store, pinger, logger)

	return a, nil
}

// setupStore opens the configured vector store backend.
func (a *App) setupStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		if err := db.Migrate(cfg.PostgresURL(), a.Logger); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		pool, err := vectorstore.NewPool(ctx, cfg.PostgresDSN())
		if err != nil {
			return fmt.Errorf("opening postgres: %w", err)
		}
		a.pool = pool
		a.Store = vectorstore.NewPostgres(pool, a.Logger)

	case config.BackendQdrant:
		q, err := vectorstore.NewQdrant(cfg.Qdrant.Addr, cfg.Store.Collection, a.Logger)
		if err != nil {
			return fmt.Errorf("opening qdrant: %w", err)
		}
		if err := q.EnsureCollection(ctx, embedDims); err != nil {
			_ = q.Close()
			return fmt.Errorf("preparing qdrant collection: %w", err)
		}
		a.Store = q
		a.Logger.Warn("usage telemetry disabled: qdrant backend has no usage_records table")

	case config.BackendMemory:
		a.Store = vectorstore.NewMemory()
		a.Logger.Warn("using in-memory vector store: data is lost on restart")

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return nil
}

// Close flushes in-flight work and releases resources.
func (a *App) Close() error {
	if a.Assistant != nil {
		a.Assistant.Close()
	}
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}
