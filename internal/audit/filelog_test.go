package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
)

func TestAppendAssignsSeqAndID(t *testing.T) {
	log := NewFileLog(filepath.Join(t.TempDir(), "audit.log"))
	defer log.Close()
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := repository.AuditEntry{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			UserID:    "alice",
			Kind:      repository.AuditKindCheck,
			Result:    repository.AuditResultDenied,
		}
		if err := log.Append(ctx, e); err != nil {
			t.Fatalf("Append #%d failed: %v", i, err)
		}
	}

	entries, err := log.Query(ctx, repository.AuditFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// más recientes primero, seq monótona
	if entries[0].Seq != 3 || entries[2].Seq != 1 {
		t.Fatalf("unexpected seq order: %d..%d", entries[0].Seq, entries[2].Seq)
	}
	for _, e := range entries {
		if e.ID == "" {
			t.Fatal("entry without generated ID")
		}
	}
}

func TestSeqResumesAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	ctx := context.Background()

	log := NewFileLog(path)
	if err := log.Append(ctx, repository.AuditEntry{Timestamp: time.Now(), Kind: repository.AuditKindCheck, Result: repository.AuditResultDenied}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// nuevo proceso: la secuencia continúa, no se resetea
	log2 := NewFileLog(path)
	defer log2.Close()
	if err := log2.Append(ctx, repository.AuditEntry{Timestamp: time.Now(), Kind: repository.AuditKindCheck, Result: repository.AuditResultDenied}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := log2.Query(ctx, repository.AuditFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Seq != 2 {
		t.Fatalf("expected seq to resume at 2, got %+v", entries)
	}
}

func TestQueryFilters(t *testing.T) {
	log := NewFileLog(filepath.Join(t.TempDir(), "audit.log"))
	defer log.Close()
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	users := []string{"alice", "bob", "alice", "alice"}
	for i, u := range users {
		e := repository.AuditEntry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			UserID:    u,
			Kind:      repository.AuditKindAssignRole,
			Result:    repository.AuditResultSuccess,
		}
		if err := log.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := log.Query(ctx, repository.AuditFilter{UserID: "alice", Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	if got[0].Seq != 4 || got[1].Seq != 3 {
		t.Fatalf("unexpected order: %+v", got)
	}

	since, err := log.Query(ctx, repository.AuditFilter{Since: base.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(since) != 2 {
		t.Fatalf("expected 2 entries since cutoff, got %d", len(since))
	}

	n, err := log.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected count 4, got %d", n)
	}
}

func TestCorruptLineSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	ctx := context.Background()

	log := NewFileLog(path)
	if err := log.Append(ctx, repository.AuditEntry{Timestamp: time.Now(), Kind: repository.AuditKindCheck, Result: repository.AuditResultDenied}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	log.Close()

	// simular un crash a mitad de un append
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"id":"truncated`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	log2 := NewFileLog(path)
	defer log2.Close()
	entries, err := log2.Query(ctx, repository.AuditFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected corrupt line skipped, got %d entries", len(entries))
	}
}
