package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAuditTrailLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	commit, err := svc.RecordImport("user-1", "Priya Sharma", Entry{
		Filename:    "cases.xlsx",
		Inserted:    42,
		Skipped:     3,
		Destination: "remote",
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("RecordImport() error = %v", err)
	}
	if commit.Hash == "" {
		t.Fatal("expected commit hash")
	}
	if !strings.Contains(commit.Message, "42 cases") {
		t.Fatalf("unexpected message: %q", commit.Message)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "user-1")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	if _, err := svc.RecordDeletion("user-1", "Priya Sharma", "case-9"); err != nil {
		t.Fatalf("RecordDeletion() error = %v", err)
	}

	history, err := svc.History("user-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}
	// Newest first.
	if !strings.Contains(history[0].Message, "Delete case case-9") {
		t.Fatalf("unexpected newest entry: %q", history[0].Message)
	}
	if history[0].Author != "Priya Sharma" {
		t.Fatalf("author = %q", history[0].Author)
	}
}

func TestHistoryForUnknownUser(t *testing.T) {
	svc := New(t.TempDir())

	history, err := svc.History("nobody", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}

func TestTrailsAreIsolated(t *testing.T) {
	svc := New(t.TempDir())

	if _, err := svc.RecordImport("alice", "Alice", Entry{Filename: "a.csv", Inserted: 1, Destination: "local"}); err != nil {
		t.Fatalf("RecordImport() error = %v", err)
	}

	history, err := svc.History("bob", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("bob sees %d entries, want 0", len(history))
	}
}
