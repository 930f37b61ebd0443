package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

// StateStore persists the last observed track listing of every playlist as a single JSON document:
//
//	{"<playlist id>": {"<track id>": "<title>", ...}, ...}
//
// Writes go through a temporary file in the same directory followed by a rename.
type StateStore struct {
	path   string
	logger *log.Logger
	mu     sync.Mutex
}

// NewStateStore creates a StateStore backed by the file at path.
func NewStateStore(path string, logger *log.Logger) *StateStore {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &StateStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the snapshot from disk.
//
// A missing file is a first run: an empty snapshot is written and returned.
// Malformed content is reported as [shared.ErrCorruptState] and left untouched.
func (s *StateStore) Load() (models.PlaylistState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("state file not found, creating a new one", "path", s.path)
		state := models.PlaylistState{}
		if err := s.write(state); err != nil {
			return nil, err
		}
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state models.PlaylistState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptState, s.path, err)
	}
	if state == nil {
		state = models.PlaylistState{}
	}
	return state, nil
}

// Save replaces the snapshot on disk with state.
func (s *StateStore) Save(state models.PlaylistState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state == nil {
		state = models.PlaylistState{}
	}
	return s.write(state)
}

func (s *StateStore) write(state models.PlaylistState) error {
	data, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close state: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
