package blob

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSStore_PutGetDelete(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	path := "datasets/alice/iris/v1/iris.csv"
	location, err := store.Put(path, []byte("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("failed to put blob: %v", err)
	}
	if location != path {
		t.Errorf("expected location %q, got %q", path, location)
	}

	data, err := store.Get(path)
	if err != nil {
		t.Fatalf("failed to get blob: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("unexpected content: %q", data)
	}

	if err := store.Delete(path); err != nil {
		t.Fatalf("failed to delete blob: %v", err)
	}
	if _, err := store.Get(path); err == nil {
		t.Error("expected error reading deleted blob")
	}
	if err := store.Delete(path); err == nil {
		t.Error("expected error deleting missing blob")
	}
}

func TestFSStore_PutOverwrites(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if _, err := store.Put("x/data.csv", []byte("old")); err != nil {
		t.Fatalf("failed to put blob: %v", err)
	}
	if _, err := store.Put("x/data.csv", []byte("new")); err != nil {
		t.Fatalf("failed to overwrite blob: %v", err)
	}

	data, err := store.Get("x/data.csv")
	if err != nil {
		t.Fatalf("failed to get blob: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("expected overwritten content, got %q", data)
	}
}

func TestNewFSStore_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "blobs")
	if _, err := NewFSStore(root); err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory not created: %v", err)
	}
}
