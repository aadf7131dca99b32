// Package store persists the pool state between restarts.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"StakePool/internal/model"
)

// FileStore keeps the pool state as an indented JSON document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the pool state. Returns a zero state if the file doesn't exist.
func (s *FileStore) Load() (*model.PoolState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.PoolState{}, nil
		}
		return nil, err
	}
	var state model.PoolState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode pool state: %w", err)
	}
	return &state, nil
}

// Save writes the pool state, replacing the file atomically.
func (s *FileStore) Save(state *model.PoolState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
