package memlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Compile-time interface assertion.
var _ Store = (*FileStore)(nil)

// FileStore is a [Store] backed by a single JSON file. Every append rewrites
// the file via a temp-file rename so a crash never leaves a half-written log.
//
// A missing or unreadable file is treated as an empty log rather than an
// error, so a fresh install starts clean.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore persisting to path. The parent directory
// is created if needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("memlog: create directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load implements [Store]. It returns the persisted log, newest first.
func (s *FileStore) Load(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(), nil
}

// AppendCapped implements [Store]. The updated log is written to disk before
// the method returns.
func (s *FileStore) AppendCapped(_ context.Context, entry Entry, max int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := AppendCapped(s.loadLocked(), entry, max)

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("memlog: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("memlog: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return nil, fmt.Errorf("memlog: rename: %w", err)
	}
	return entries, nil
}

// loadLocked reads and decodes the log file. Corruption or absence yields an
// empty log. Must be called with s.mu held.
func (s *FileStore) loadLocked() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Debug("memlog: read failed, starting empty", "path", s.path, "err", err)
		}
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Debug("memlog: corrupt log file, starting empty", "path", s.path, "err", err)
		return nil
	}
	return entries
}
