package storage

import (
	"os"
	"path/filepath"
	"testing"

	"gracecal/internal/model"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	f, err := NewJSONFile(filepath.Join(t.TempDir(), "events.json"))
	if err != nil {
		t.Fatal(err)
	}
	events, err := f.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty collection, got %d events", len(events))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.json")
	f, err := NewJSONFile(path)
	if err != nil {
		t.Fatal(err)
	}

	ev, err := model.NewEvent("Hackathon", "2026-09-01", "2026-09-02", "maratona")
	if err != nil {
		t.Fatal(err)
	}
	ev.Index = 1
	task, err := model.NewTask("marketing", "Divulgar", "2026-08-20", []string{"alice"}, []string{"canva"}, "posts")
	if err != nil {
		t.Fatal(err)
	}
	task.Index = 1
	threshold, _ := model.ParseDate("2026-08-06")
	task.Reminded.Add(threshold)
	ev.Tasks = []*model.Task{task}

	if err := f.Save([]*model.Event{ev}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := f.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d events", len(loaded))
	}
	got := loaded[0]
	if got.Title != "Hackathon" || got.StartDate.String() != "2026-09-01" || got.EndDate.String() != "2026-09-02" {
		t.Fatalf("event fields lost: %+v", got)
	}
	if len(got.Tasks) != 1 {
		t.Fatalf("tasks lost: %+v", got.Tasks)
	}
	gt := got.Tasks[0]
	if gt.Area != model.AreaMarketing || gt.State != model.StatePending || gt.Deadline.String() != "2026-08-20" {
		t.Fatalf("task fields lost: %+v", gt)
	}
	if !gt.Reminded.Has(threshold) {
		t.Fatal("task reminder markers lost")
	}
}

func TestSaveIsAtomicAndPrivate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.json")
	f, err := NewJSONFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Save(nil); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("snapshot permissions = %o, want 600", perm)
	}

	// No temp files may survive a save.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("stray files after save: %v", entries)
	}

	// nil saves as an empty array, not "null".
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "null" {
		t.Fatal("nil collection serialized as null")
	}
}

func TestNewJSONFileRejectsEmptyPath(t *testing.T) {
	if _, err := NewJSONFile(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
