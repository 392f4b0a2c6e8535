package auditlog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_AppendAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	store := NewStore(path)

	actions := []string{"session_started", "tag_programmed", "session_complete"}
	for _, action := range actions {
		err := store.Append(action, "session-1", map[string]any{"sku": "PLA001"})
		if err != nil {
			t.Fatalf("Append(%s) failed: %v", action, err)
		}
	}

	entries, err := store.Tail(10)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	// Oldest first.
	for i, action := range actions {
		if entries[i].Action != action {
			t.Errorf("entries[%d].Action = %q, want %q", i, entries[i].Action, action)
		}
	}
	if entries[0].SessionID != "session-1" {
		t.Errorf("SessionID = %q, want session-1", entries[0].SessionID)
	}
	if entries[0].Fields["sku"] != "PLA001" {
		t.Errorf("Fields[sku] = %v, want PLA001", entries[0].Fields["sku"])
	}
	if entries[0].Ts == "" {
		t.Error("Ts is empty")
	}
}

func TestStore_TailLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	store := NewStore(path)

	for i := 0; i < 10; i++ {
		if err := store.Append("probe", "", nil); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := store.Tail(4)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("len(entries) = %d, want 4", len(entries))
	}
}

func TestStore_TailMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-written.log"))

	entries, err := store.Tail(10)
	if err != nil {
		t.Fatalf("Tail on missing file failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestStore_TailSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	store := NewStore(path)

	if err := store.Append("good", "s1", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("this is not json\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := store.Append("also_good", "s1", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := store.Tail(10)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Action != "good" || entries[1].Action != "also_good" {
		t.Errorf("actions = %q, %q", entries[0].Action, entries[1].Action)
	}
}

func TestStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "actions.log")
	store := NewStore(path)

	if err := store.Append("first", "", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
