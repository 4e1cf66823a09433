// Package state persists the most recent analysis so later commands can
// redisplay it without re-reading the project file.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sauravsvt/PERT-CPM/internal/pipeline"
)

// DefaultDir is used when no state directory is configured.
const DefaultDir = ".pert"

const stateFile = "analysis.json"

// Store reads and writes the last analysis under a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store rooted at dir. An empty dir means DefaultDir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, stateFile)
}

// Save writes the analysis, replacing any previous snapshot. The file is
// written to a temporary name and renamed so readers never see a partial
// snapshot.
func (s *Store) Save(a *pipeline.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Load reads the last saved analysis.
func (s *Store) Load() (*pipeline.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var a pipeline.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &a, nil
}

// Exists checks if a snapshot exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Clean removes the snapshot and its temporary file. The directory itself
// is removed only when nothing else is left in it, since it may be shared
// with project files.
func (s *Store) Clean() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.Path(), s.Path() + ".tmp"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove state: %w", err)
		}
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read state dir: %w", err)
	}
	if len(entries) == 0 {
		if err := os.Remove(s.dir); err != nil {
			return fmt.Errorf("remove state dir: %w", err)
		}
	}
	return nil
}
