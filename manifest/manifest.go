// CLAUDE:SUMMARY Typed manifest model: load from URL with strict validation, resolve relative file refs.
// Package manifest models the versioned descriptor of published caselaw
// artifacts: at most one current weekly snapshot plus an ordered list of
// daily deltas, each referencing a compressed SQLite file by relative path,
// SHA-256 and byte size.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Schema is the manifest schema tag this client understands.
const Schema = "swiss-caselaw-artifacts-v1"

// ErrFetch indicates a network or HTTP failure reaching the manifest URL.
var ErrFetch = errors.New("manifest: fetch failed")

// ErrParse indicates malformed JSON or missing required fields.
var ErrParse = errors.New("manifest: parse failed")

// FileRef points at one published artifact file, relative to the manifest's
// hosting location.
type FileRef struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// Snapshot describes the current full weekly snapshot.
type Snapshot struct {
	Week      string  `json:"week"`
	SQLiteZst FileRef `json:"sqlite_zst"`
}

// Delta describes one dated incremental artifact on top of the snapshot.
type Delta struct {
	Date      string  `json:"date"`
	SQLiteZst FileRef `json:"sqlite_zst"`
}

// Manifest is the fully validated remote state description. BaseURL is
// derived from the manifest URL at load time and is not part of the JSON.
type Manifest struct {
	Schema      string    `json:"schema"`
	GeneratedAt string    `json:"generated_at"`
	Snapshot    *Snapshot `json:"snapshot"`
	Deltas      []Delta   `json:"deltas"`

	BaseURL string `json:"-"`
}

// FileURL resolves a file reference against the manifest's base location.
func (m *Manifest) FileURL(ref FileRef) string {
	return m.BaseURL + ref.Path
}

// baseURL derives the artifact base from the manifest URL. Hugging Face
// dataset URLs keep the "/resolve/<rev>/" prefix; anything else falls back
// to the manifest's directory.
func baseURL(manifestURL string) string {
	if prefix, rest, ok := strings.Cut(manifestURL, "/resolve/"); ok {
		rev, _, _ := strings.Cut(rest, "/")
		return prefix + "/resolve/" + rev + "/"
	}
	if i := strings.LastIndex(manifestURL, "/"); i >= 0 {
		return manifestURL[:i+1]
	}
	return manifestURL
}

// Load fetches and validates a manifest. A nil client uses http.DefaultClient.
// Failures are classified as ErrFetch (transport/HTTP status) or ErrParse
// (body does not describe a valid manifest).
func Load(ctx context.Context, client *http.Client, url string) (*Manifest, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrFetch, url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.BaseURL = baseURL(url)
	return m, nil
}

// Parse decodes and validates manifest JSON. The manifest is validated fully
// here so that later field access can never fail lazily.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Schema == "" {
		return fmt.Errorf("%w: missing schema tag", ErrParse)
	}
	if m.Snapshot != nil {
		if m.Snapshot.Week == "" {
			return fmt.Errorf("%w: snapshot missing week", ErrParse)
		}
		if err := m.Snapshot.SQLiteZst.validate("snapshot"); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(m.Deltas))
	for i, d := range m.Deltas {
		if d.Date == "" {
			return fmt.Errorf("%w: delta %d missing date", ErrParse, i)
		}
		if seen[d.Date] {
			return fmt.Errorf("%w: duplicate delta date %s", ErrParse, d.Date)
		}
		seen[d.Date] = true
		if err := d.SQLiteZst.validate("delta " + d.Date); err != nil {
			return err
		}
	}
	if !sort.SliceIsSorted(m.Deltas, func(i, j int) bool { return m.Deltas[i].Date < m.Deltas[j].Date }) {
		return fmt.Errorf("%w: deltas not in ascending date order", ErrParse)
	}
	return nil
}

func (r FileRef) validate(where string) error {
	if r.Path == "" {
		return fmt.Errorf("%w: %s missing path", ErrParse, where)
	}
	if len(r.SHA256) != 64 {
		return fmt.Errorf("%w: %s has invalid sha256", ErrParse, where)
	}
	return nil
}
