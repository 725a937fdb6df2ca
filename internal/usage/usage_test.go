package usage

import (
	"context"
	"errors"
	"testing"
)

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()

	rec := Record{RequestID: "r1", UserEmail: "aluno@aluno.ifsp.edu.br", TotalTokens: 42}
	if err := sink.Log(context.Background(), rec); err != nil {
		t.Fatalf("Log: %v", err)
	}

	records := sink.Records()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].RequestID != "r1" || records[0].TotalTokens != 42 {
		t.Errorf("got %+v", records[0])
	}
}

func TestMemorySinkErr(t *testing.T) {
	sink := NewMemorySink()
	sink.Err = errors.New("sink down")

	if err := sink.Log(context.Background(), Record{}); err == nil {
		t.Error("expected injected error")
	}
	if len(sink.Records()) != 0 {
		t.Error("failed log must not be recorded")
	}
}

func TestNopSink(t *testing.T) {
	if err := (NopSink{}).Log(context.Background(), Record{RequestID: "r"}); err != nil {
		t.Errorf("NopSink.Log: %v", err)
	}
}
