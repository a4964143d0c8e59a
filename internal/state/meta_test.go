package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/sketchd/internal/types"
)

func TestMetaStore(t *testing.T) {
	dir := t.TempDir()
	store := NewMetaStore(dir)

	meta := types.SessionMeta{
		ID:        "s1",
		Title:     "first session",
		Kind:      "chat",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Save(meta); err != nil {
		t.Fatal(err)
	}

	list, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "s1" || list[0].Title != "first session" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Save with the same id updates in place.
	meta.Title = "renamed"
	if err := store.Save(meta); err != nil {
		t.Fatal(err)
	}
	list, err = store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "renamed" {
		t.Fatalf("expected upsert, got %+v", list)
	}
}

func TestMetaStoreLoadEmpty(t *testing.T) {
	store := NewMetaStore(t.TempDir())
	list, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
}

func TestMetaStoreDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewMetaStore(dir)

	if err := store.Save(types.SessionMeta{ID: "s1", Title: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(types.SessionMeta{ID: "s2", Title: "b"}); err != nil {
		t.Fatal(err)
	}

	// Workspace dir exists, then goes away with the record.
	workDir := store.Dir("s1")
	if _, err := os.Stat(workDir); err != nil {
		t.Fatalf("expected workspace dir: %v", err)
	}

	if err := store.Delete("s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Error("expected workspace dir removed")
	}

	list, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "s2" {
		t.Fatalf("unexpected list after delete: %+v", list)
	}
}

func TestMetaStoreDir(t *testing.T) {
	dir := t.TempDir()
	store := NewMetaStore(dir)

	got := store.Dir("s1")
	want := filepath.Join(dir, "sessions", "s1")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
