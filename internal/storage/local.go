// Package storage persists document bytes. Files are written once under an
// opaque key and never mutated, so readers need no locking.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore stores and retrieves immutable document bytes by opaque key.
type BlobStore interface {
	Save(caseID, filename string, data []byte) (string, error)
	Load(key string) ([]byte, error)
}

// LocalStore keeps document bytes on the local filesystem, grouped per case:
// <root>/<case_id>/<uuid>_<safe_name>.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local blob store rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &LocalStore{root: dir}, nil
}

// Save writes the bytes once and returns the storage key.
func (s *LocalStore) Save(caseID, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.root, caseID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create case dir: %w", err)
	}

	name := uuid.New().String() + "_" + safeName(filename)
	key := filepath.Join(caseID, name)

	if err := os.WriteFile(filepath.Join(s.root, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return key, nil
}

// Load reads the bytes for a storage key.
func (s *LocalStore) Load(key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.root, key))
}

// safeName strips any path components from an uploaded filename.
func safeName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "uploaded-document"
	}
	return name
}
