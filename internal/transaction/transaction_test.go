package transaction

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRollbackRestoresOverwrittenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	tx := m.Begin("task-1")
	if err := m.RecordWrite(tx, path, "write_file"); err != nil {
		t.Fatalf("RecordWrite: %v", err)
	}
	if err := os.WriteFile(path, []byte("modified"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.Rollback(tx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Fatalf("expected rollback to restore original content, got %q", got)
	}
	if tx.Status != StatusRolledBack {
		t.Fatalf("expected status rolled_back, got %s", tx.Status)
	}
}

func TestRollbackRemovesNewlyCreatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.go")

	m := NewManager()
	tx := m.Begin("task-1")
	if err := m.RecordWrite(tx, path, "write_file"); err != nil {
		t.Fatalf("RecordWrite: %v", err)
	}
	if err := os.WriteFile(path, []byte("new content"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.Rollback(tx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed after rollback, stat err = %v", err)
	}
}

func TestRollbackRecreatesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.go")
	if err := os.WriteFile(path, []byte("keepme"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	tx := m.Begin("task-1")
	if err := m.RecordDelete(tx, path, "delete_file"); err != nil {
		t.Fatalf("RecordDelete: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if err := m.Rollback(tx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file recreated, stat err = %v", err)
	}
	if string(got) != "keepme" {
		t.Fatalf("expected recreated content %q, got %q", "keepme", got)
	}
}

func TestRollbackReversesActionsInReverseOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seq.go")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	tx := m.Begin("task-1")

	if err := m.RecordWrite(tx, path, "edit_file"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.RecordWrite(tx, path, "edit_file"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("v3"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.Rollback(tx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v1" {
		t.Fatalf("expected rollback in reverse order to reach v1, got %q", got)
	}
}

func TestRollbackSkipsNonReversibleActionsWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	tx := m.Begin("task-1")
	if err := m.RecordWrite(tx, path, "write_file"); err != nil {
		t.Fatal(err)
	}
	m.RecordNonReversible(tx, "run_cmd", "")

	if err := os.WriteFile(path, []byte("modified"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := m.Rollback(tx); err != nil {
		t.Fatalf("Rollback should not fail on a non-reversible action: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Fatalf("expected reversible action still rolled back, got %q", got)
	}
}

func TestCommitPreventsNothingButMarksStatus(t *testing.T) {
	m := NewManager()
	tx := m.Begin("task-1")
	m.Commit(tx)
	if tx.Status != StatusCommitted {
		t.Fatalf("expected committed status, got %s", tx.Status)
	}
}

func TestMoveRollbackRenamesBack(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.go")
	newPath := filepath.Join(dir, "new.go")
	if err := os.WriteFile(oldPath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	tx := m.Begin("task-1")
	m.RecordMove(tx, oldPath, newPath, "move_file")
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	if err := m.Rollback(tx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := os.Stat(oldPath); err != nil {
		t.Fatalf("expected file restored at old path: %v", err)
	}
}
