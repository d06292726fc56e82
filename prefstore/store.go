// Package prefstore persists per-user preferences as a flat JSON file.
//
// Reads never fail the caller: a missing, unreadable or corrupt file is
// treated as "no preferences stored". Writes rewrite the whole file with no
// locking, so concurrent writers race and the last write wins. That hazard is
// accepted here; callers that need durability under contention must bring
// their own coordination.
package prefstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes the preference file.
type Store struct {
	path string
}

// NewStore creates a Store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the stored preference mapping for a user.
// Unknown users and unreadable stores yield an empty mapping, never an error.
func (s *Store) Get(user string) map[string]any {
	data := s.read()
	prefs, ok := data[user]
	if !ok || prefs == nil {
		return map[string]any{}
	}
	return prefs
}

// Upsert shallow-merges the given keys into the user's stored mapping and
// persists the full store. New values overwrite old ones for the same key;
// unrelated keys are kept.
func (s *Store) Upsert(user string, prefs map[string]any) error {
	data := s.read()
	current, ok := data[user]
	if !ok || current == nil {
		current = map[string]any{}
	}
	for k, v := range prefs {
		current[k] = v
	}
	data[user] = current
	return s.write(data)
}

func (s *Store) read() map[string]map[string]any {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]map[string]any{}
	}
	var data map[string]map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		// Corrupt store reads as empty.
		return map[string]map[string]any{}
	}
	if data == nil {
		data = map[string]map[string]any{}
	}
	return data
}

func (s *Store) write(data map[string]map[string]any) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create preference dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
