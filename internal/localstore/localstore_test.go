package localstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"casedesk/api/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func insert(parties string) store.CaseInsert {
	return store.CaseInsert{Parties: parties, Forum: "High Court", Status: "Active"}
}

func TestAddListRemove(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Add("u1", []store.CaseInsert{insert("A vs B")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := s.Add("u1", []store.CaseInsert{insert("C vs D"), insert("E vs F")})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	listed, err := s.List("u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("len = %d, want 3", len(listed))
	}
	// Newest batch is prepended.
	if listed[0].ID != second[0].ID || listed[2].ID != first[0].ID {
		t.Fatalf("unexpected order: %v", listed)
	}
	if !IsLocalID(listed[0].ID) {
		t.Fatalf("id %q missing local prefix", listed[0].ID)
	}

	removed, err := s.Remove("u1", first[0].ID)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	removed, err = s.Remove("u1", "local-nope")
	if err != nil || removed {
		t.Fatalf("Remove missing = %v, %v", removed, err)
	}

	listed, err = s.List("u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("len after remove = %d, want 2", len(listed))
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Add("alice", []store.CaseInsert{insert("A vs B")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	listed, err := s.List("bob")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("bob sees %d records, want 0", len(listed))
	}
}

func TestListDropsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Add("u1", []store.CaseInsert{insert("A vs B")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Splice in a record missing its required fields.
	path := filepath.Join(dir, "litigation_cases_u1.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	broken := strings.Replace(string(data), "]", `,{"id":"local-x","user_id":"u1","parties":"","forum":"","status":"Active"}]`, 1)
	if err := os.WriteFile(path, []byte(broken), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	listed, err := s.List("u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("len = %d, want 1 (malformed dropped)", len(listed))
	}
}

func TestCorruptFileBehavesAsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(dir, "litigation_cases_u1.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	listed, err := s.List("u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("len = %d, want 0", len(listed))
	}

	// Writes still work after corruption.
	if _, err := s.Add("u1", []store.CaseInsert{insert("A vs B")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
}
