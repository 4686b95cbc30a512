package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileStoreExt = ".kv"

var keyEscaper = strings.NewReplacer("%", "%25", "/", "%2F", "\\", "%5C", ":", "%3A")

// FileStore keeps each key in its own file under a directory, so a write
// only touches the key being written.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Persist writes value under key, replacing the key's file atomically.
func (s *FileStore) Persist(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create store tmp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write store tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close store tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.keyPath(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename store: %w", err)
	}
	return nil
}

// Load returns the value stored under key.
func (s *FileStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("key is required")
	}
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read store: %w", err)
	}
	return data, true, nil
}

func (s *FileStore) Close() {}

func (s *FileStore) keyPath(key string) string {
	return filepath.Join(s.dir, keyEscaper.Replace(key)+fileStoreExt)
}
