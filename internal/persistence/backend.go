package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/STARREPORTS/internal/types"
)

// ErrNoSnapshot is returned by Backend.Read when nothing was saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Backend stores the single snapshot blob
type Backend interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}

// OpenBackend opens the backend selected by cfg.
func OpenBackend(cfg types.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "", types.BackendFile:
		return NewFileBackend(cfg.Path), nil
	case types.BackendSQLite:
		return OpenSQLiteBackend(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// FileBackend keeps the snapshot in one JSON file
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend writing to path
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the snapshot file path
func (b *FileBackend) Path() string {
	return b.path
}

// Read returns the snapshot file content
func (b *FileBackend) Read() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the snapshot file. The data goes to a temp file that is
// renamed over the old snapshot, so readers never see a partial write.
func (b *FileBackend) Write(data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Close is a no-op for files
func (b *FileBackend) Close() error {
	return nil
}
