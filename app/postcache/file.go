package postcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/lysyi3m/landing-comb/app/content"
)

// FileStore keeps the cache as an indented JSON array in a single file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty set when the file does not exist yet.
func (s *FileStore) Load(_ context.Context) ([]content.CachedPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read post cache: %w", err)
	}

	var records []content.CachedPost
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse post cache: %w", err)
	}
	return records, nil
}

// Replace writes through a temp file and rename so a crash never leaves a half-written cache.
func (s *FileStore) Replace(_ context.Context, records []content.CachedPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if records == nil {
		records = []content.CachedPost{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode post cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".post-cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write post cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close post cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace post cache: %w", err)
	}
	return nil
}
