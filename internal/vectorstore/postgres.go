package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// Postgres stores chunks in a pgvector-enabled PostgreSQL database.
// Similarity is cosine, computed by the <=> operator.
//
// Postgres is safe for concurrent use.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Store over an existing connection pool. The pool
// must have pgvector types registered; NewPool does this.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

// NewPool creates a pgx connection pool with pgvector types registered on
// every connection, pings it, and returns it ready for NewPostgres.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Upsert implements Store. Records are written in a single batch.
func (p *Postgres) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for chunk %q: %w", r.ID, err)
		}
		batch.Queue(`
			INSERT INTO chunks (id, content, embedding, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata`,
			r.ID, r.Content, pgvector.NewVector(r.Embedding), metadataJSON)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, r := range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting chunk %q: %w", r.ID, err)
		}
	}

	p.logger.Debug("upserted chunks", "count", len(records))
	return nil
}

// Search implements Store. Ties on distance break by creation time and
// ID so result order is deterministic.
func (p *Postgres) Search(ctx context.Context, embedding []float32, topK int, classScope string) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := `
		SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM chunks`
	args := []any{pgvector.NewVector(embedding)}

	if classScope != "" {
		query += `
		WHERE metadata->>'class_code' = $2
			OR metadata->>'class_code' = $3
			OR metadata->>'class_code' IS NULL
			OR metadata->>'class_code' = ''`
		args = append(args, classScope, ScopeAdmin)
	}

	query += fmt.Sprintf(`
		ORDER BY embedding <=> $1, created_at, id
		LIMIT %d`, topK)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			content      string
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}

		var metadata Metadata
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			p.logger.Warn("unparseable chunk metadata", "error", err)
		}

		results = append(results, Result{
			Content:  content,
			Metadata: metadata,
			Score:    similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return results, nil
}

// DeleteByFileID implements Store.
func (p *Postgres) DeleteByFileID(ctx context.Context, fileID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM chunks WHERE metadata->>'file_id' = $1`, fileID)
	if err != nil {
		return fmt.Errorf("deleting chunks for file %q: %w", fileID, err)
	}
	p.logger.Debug("deleted chunks", "file_id", fileID, "count", tag.RowsAffected())
	return nil
}

// Close implements Store. The pool is owned by the caller of NewPostgres,
// so this is a no-op; close the pool where it was created.
func (*Postgres) Close() error { return nil }
