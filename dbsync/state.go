// CLAUDE:SUMMARY Durable sync state: installed snapshot week and the set of applied deltas.
package dbsync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateFile = "state.json"

// State records what is installed locally. It is the source of truth for
// resumable sync: a delta listed in AppliedDeltas is never replayed.
type State struct {
	SnapshotWeek      string   `json:"snapshot_week"`
	AppliedDeltas     []string `json:"applied_deltas"`
	RemoteGeneratedAt string   `json:"remote_generated_at,omitempty"`
}

// loadState reads state.json from dataDir. A missing file is a fresh
// install and yields zero state.
func loadState(dataDir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, stateFile))
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dbsync: read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("dbsync: parse state: %w", err)
	}
	return &st, nil
}

// saveState writes state.json atomically via a temp file and rename.
func saveState(dataDir string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("dbsync: encode state: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(dataDir, stateFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("dbsync: write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("dbsync: replace state: %w", err)
	}
	return nil
}
