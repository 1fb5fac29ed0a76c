package sidecache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTaskIDCacheLoadMissingFile(t *testing.T) {
	c := NewTaskIDCache(t.TempDir())
	got, err := c.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() = %v, want empty", got)
	}
}

func TestTaskIDCacheMergePreservesExisting(t *testing.T) {
	dir := t.TempDir()
	c := NewTaskIDCache(dir)

	if err := c.Merge(map[int]string{1: "task-a", 2: "task-b"}); err != nil {
		t.Fatalf("first Merge() error: %v", err)
	}
	// Second write for a different run must not clobber earlier entries.
	if err := c.Merge(map[int]string{2: "task-b2", 3: "task-c"}); err != nil {
		t.Fatalf("second Merge() error: %v", err)
	}

	got, err := c.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := map[int]string{1: "task-a", 2: "task-b2", 3: "task-c"}
	if len(got) != len(want) {
		t.Fatalf("Load() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("cache[%d] = %q, want %q", k, got[k], v)
		}
	}
}

func TestTaskIDCacheSkipsNonNumericKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, TaskIDCacheFile)
	if err := os.WriteFile(path, []byte(`{"1":"ok","junk":"bad"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewTaskIDCache(dir).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 1 || got[1] != "ok" {
		t.Errorf("Load() = %v, want only {1: ok}", got)
	}
}

func TestProcessedSetRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewProcessedSet(dir)
	if err := s.Load(); err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}
	if err := s.Add(3); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := s.Add(7); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := s.Add(3); err != nil {
		t.Fatalf("Add() duplicate error: %v", err)
	}

	reloaded := NewProcessedSet(dir)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if !reloaded.Contains(3) || !reloaded.Contains(7) {
		t.Error("reloaded set missing scenes")
	}
	if reloaded.Contains(5) {
		t.Error("reloaded set contains scene never added")
	}
}

func TestProcessedSetClear(t *testing.T) {
	dir := t.TempDir()
	s := NewProcessedSet(dir)
	if err := s.Add(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if s.Contains(1) {
		t.Error("set still contains scene after Clear")
	}
	if _, err := os.Stat(filepath.Join(dir, ProcessedSetFile)); !os.IsNotExist(err) {
		t.Error("processed set file still exists after Clear")
	}
}
