package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DocumentStore implements the Store interface using JSON files on the
// local filesystem. Documents are written indented so operators can read
// and edit them by hand.
type DocumentStore struct {
	rootDir string
}

// NewDocumentStore creates a filesystem-based document store rooted at rootDir
func NewDocumentStore(rootDir string) (*DocumentStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &DocumentStore{rootDir: rootDir}, nil
}

// Root returns the directory documents are stored under
func (s *DocumentStore) Root() string {
	return s.rootDir
}

// Save implements Store.Save
func (s *DocumentStore) Save(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", name, err)
	}

	path := filepath.Join(s.rootDir, name)
	if dir := filepath.Dir(path); dir != s.rootDir {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create document directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write document %s: %w", name, err)
	}

	return nil
}

// Load implements Store.Load
func (s *DocumentStore) Load(name string, v interface{}) error {
	path := filepath.Join(s.rootDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal document %s: %w", name, err)
	}

	return nil
}
