package client

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// CursorStore persists the device's last applied position across restarts.
type CursorStore interface {
	Load() (string, error)
	Save(position string) error
}

// FileCursorStore keeps the cursor in a small local file. A missing file
// means the device has never synced and replays from the beginning.
type FileCursorStore struct {
	path string
}

func NewFileCursorStore(path string) *FileCursorStore {
	return &FileCursorStore{path: path}
}

func (s *FileCursorStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cursor file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileCursorStore) Save(position string) error {
	if err := os.WriteFile(s.path, []byte(position), 0o600); err != nil {
		return fmt.Errorf("failed to write cursor file: %w", err)
	}
	return nil
}

// MemoryCursorStore is the in-process variant used in tests.
type MemoryCursorStore struct {
	mu       sync.Mutex
	position string
}

func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{}
}

func (s *MemoryCursorStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, nil
}

func (s *MemoryCursorStore) Save(position string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = position
	return nil
}
