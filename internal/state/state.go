// Package state persists what the last plenumbot runs did.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// Version is the current schema version of the state file
	Version = 1

	// Filename is the state file inside the state directory
	Filename = "state.json"
)

// Run describes a single execution of the generation cycle.
type Run struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Reference     string    `json:"reference"`
	NextPage      string    `json:"next_page"`
	LastPage      string    `json:"last_page"`
	Concluded     bool      `json:"concluded"`
	IndexWritten  bool      `json:"index_written"`
	Redirected    bool      `json:"redirected"`
	PagesArchived int       `json:"pages_archived"`
	DryRun        bool      `json:"dry_run,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Succeeded reports whether the run completed without error.
func (r Run) Succeeded() bool {
	return r.Error == ""
}

// State is the persisted run history summary.
type State struct {
	Version     int       `json:"version"`
	RunCount    int       `json:"run_count"`
	LastRun     *Run      `json:"last_run,omitempty"`
	LastSuccess *Run      `json:"last_success,omitempty"`
	IndexedAt   time.Time `json:"indexed_at,omitzero"`
	mu          sync.RWMutex
}

// New returns an empty state.
func New() *State {
	return &State{Version: Version}
}

// PathIn returns the state file path inside dir.
func PathIn(dir string) string {
	return filepath.Join(dir, Filename)
}

// Load reads the state file at path. A missing file yields an empty state.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	if s.Version == 0 {
		s.Version = Version
	}
	return &s, nil
}

// Record adds a finished run.
func (s *State) Record(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RunCount++
	r := run
	s.LastRun = &r
	if run.Succeeded() && !run.DryRun {
		ok := run
		s.LastSuccess = &ok
	}
}

// MarkIndexed records a full archive rebuild.
func (s *State) MarkIndexed(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IndexedAt = at
}

// Snapshot returns a copy of the last run and the last successful run.
func (s *State) Snapshot() (last, success *Run) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastRun != nil {
		r := *s.LastRun
		last = &r
	}
	if s.LastSuccess != nil {
		r := *s.LastSuccess
		success = &r
	}
	return last, success
}

// Save writes the state to path through a temp file and rename.
func (s *State) Save(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}
