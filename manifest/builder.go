// CLAUDE:SUMMARY Pipeline-side manifest mutation: set snapshot (resets deltas), add delta (dedupe + sort), atomic save.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// New returns an empty manifest carrying the current schema tag.
func New() *Manifest {
	return &Manifest{
		Schema:      Schema,
		GeneratedAt: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Deltas:      []Delta{},
	}
}

// LoadFile reads a manifest from disk. A missing file yields an empty manifest
// so that the first pipeline run starts from scratch.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return Parse(data)
}

// Save writes the manifest atomically (tmp + rename), restamping the schema
// tag and generation time.
func (m *Manifest) Save(path string) error {
	m.Schema = Schema
	m.GeneratedAt = time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("manifest: mkdir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("manifest: rename: %w", err)
	}
	return nil
}

// SetSnapshot installs a new weekly snapshot. Deltas are reset: published
// deltas are always relative to the current snapshot.
func (m *Manifest) SetSnapshot(week string, ref FileRef) {
	m.Snapshot = &Snapshot{Week: week, SQLiteZst: ref}
	m.Deltas = []Delta{}
}

// AddDelta registers a dated delta, replacing any existing entry for the same
// date and keeping the list sorted ascending.
func (m *Manifest) AddDelta(date string, ref FileRef) {
	deltas := m.Deltas[:0]
	for _, d := range m.Deltas {
		if d.Date != date {
			deltas = append(deltas, d)
		}
	}
	deltas = append(deltas, Delta{Date: date, SQLiteZst: ref})
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Date < deltas[j].Date })
	m.Deltas = deltas
}

// ISOWeek formats t's ISO calendar week as "2024-W10"-style labels used for
// snapshot naming.
func ISOWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
