package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the durable backend behind the Store: one document per profile
// id. Implementations return ErrNotFound (wrapped) for absent records on
// both Read and Delete.
type Storage interface {
	// Init ensures the backing location exists. Idempotent; a missing
	// location is created, not treated as an error.
	Init() error

	// Read returns the raw document for id.
	Read(id string) ([]byte, error)

	// Write persists the raw document for id, replacing any previous one.
	Write(id string, data []byte) error

	// Delete removes the document for id.
	Delete(id string) error

	// List returns the ids of every persisted document.
	List() ([]string, error)

	// Close releases backend resources.
	Close() error
}

// FileStorage persists each profile as <dir>/<id>.json.
type FileStorage struct {
	dir string
}

// NewFileStorage returns a file-backed Storage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

func (f *FileStorage) Init() error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("profile: create storage dir: %w", err)
	}
	return nil
}

func (f *FileStorage) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func (f *FileStorage) Read(id string) ([]byte, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("profile: read %s: %w", id, err)
	}
	return data, nil
}

func (f *FileStorage) Write(id string, data []byte) error {
	if err := os.WriteFile(f.path(id), data, 0o644); err != nil {
		return fmt.Errorf("profile: write %s: %w", id, err)
	}
	return nil
}

func (f *FileStorage) Delete(id string) error {
	if err := os.Remove(f.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("profile: delete %s: %w", id, err)
	}
	return nil
}

func (f *FileStorage) List() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile: list storage dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func (f *FileStorage) Close() error { return nil }
