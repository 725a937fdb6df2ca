// Package usage records per-request token consumption for reporting.
package usage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one answered request worth of telemetry.
type Record struct {
	ID               string
	RequestID        string
	UserEmail        string
	UserRole         string
	ClassCode        string
	Categories       []string
	Subcategories    []string
	Prompt           string
	Response         string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CreatedAt        time.Time
}

// Sink persists usage records. Implementations must tolerate being
// called from short-lived goroutines after the request has completed.
type Sink interface {
	Log(ctx context.Context, rec Record) error
}

// PostgresSink writes usage records to the usage_records table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a Sink over an existing pool.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Log implements Sink.
func (s *PostgresSink) Log(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO usage_records
			(id, request_id, user_email, user_role, class_code,
			 categories, subcategories, prompt, response,
			 prompt_tokens, completion_tokens, total_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (request_id) DO NOTHING`,
		rec.ID, rec.RequestID, rec.UserEmail, rec.UserRole, rec.ClassCode,
		strings.Join(rec.Categories, ","), strings.Join(rec.Subcategories, ","),
		rec.Prompt, rec.Response,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting usage record %q: %w", rec.RequestID, err)
	}
	return nil
}

// MemorySink collects records in memory. Test double and local-run sink.
type MemorySink struct {
	mu      sync.Mutex
	records []Record

	// Err, when set, fails every Log call.
	Err error
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Log implements Sink.
func (s *MemorySink) Log(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of everything logged so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Record, len(s.records))
	copy(cp, s.records)
	return cp
}

// NopSink discards every record.
type NopSink struct{}

// Log implements Sink.
func (NopSink) Log(context.Context, Record) error { return nil }
