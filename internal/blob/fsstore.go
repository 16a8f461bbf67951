// Package blob provides the filesystem blob store for raw version
// content. Paths are relative to a configured root and follow the
// datasets/{user}/{dataset}/v{n}/{filename} convention.
package blob

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prepflow-labs/prepflow/pkg/core"
)

// FSStore stores blobs as files under a root directory.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Put writes data at path, creating parent directories, and returns the
// stored path.
func (s *FSStore) Put(path string, data []byte) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return path, nil
}

// Get reads the blob at path.
func (s *FSStore) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Delete removes the blob at path. Deleting a missing blob is an error;
// cleanup callers log and continue.
func (s *FSStore) Delete(path string) error {
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path))); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Ensure FSStore implements the BlobStore interface.
var _ core.BlobStore = (*FSStore)(nil)
