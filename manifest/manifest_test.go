package manifest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

const sampleSHA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func sampleJSON() string {
	return `{
	  "schema": "swiss-caselaw-artifacts-v1",
	  "generated_at": "2024-03-15T06:00:00Z",
	  "snapshot": {"week": "2024-W10", "sqlite_zst": {"path": "snapshots/2024-W10.sqlite.zst", "sha256": "` + sampleSHA + `", "bytes": 1234}},
	  "deltas": [
	    {"date": "2024-03-14", "sqlite_zst": {"path": "deltas/2024-03-14.sqlite.zst", "sha256": "` + sampleSHA + `", "bytes": 10}},
	    {"date": "2024-03-15", "sqlite_zst": {"path": "deltas/2024-03-15.sqlite.zst", "sha256": "` + sampleSHA + `", "bytes": 20}}
	  ]
	}`
}

func TestLoadValidManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleJSON()))
	}))
	defer srv.Close()

	m, err := Load(context.Background(), srv.Client(), srv.URL+"/artifacts/manifest.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Snapshot == nil || m.Snapshot.Week != "2024-W10" {
		t.Fatalf("snapshot week: %+v", m.Snapshot)
	}
	if len(m.Deltas) != 2 || m.Deltas[0].Date != "2024-03-14" {
		t.Fatalf("deltas: %+v", m.Deltas)
	}
	want := srv.URL + "/artifacts/deltas/2024-03-14.sqlite.zst"
	if got := m.FileURL(m.Deltas[0].SQLiteZst); got != want {
		t.Fatalf("file url: got %s want %s", got, want)
	}
}

func TestLoadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.Client(), srv.URL+"/manifest.json")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("want ErrFetch, got %v", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"missing schema":  `{"generated_at": "x"}`,
		"snapshot no ref": `{"schema": "s", "snapshot": {"week": "2024-W10", "sqlite_zst": {"path": "", "sha256": "", "bytes": 0}}}`,
		"bad sha length":  `{"schema": "s", "deltas": [{"date": "2024-01-01", "sqlite_zst": {"path": "d.zst", "sha256": "abc", "bytes": 1}}]}`,
		"unsorted deltas": `{"schema": "s", "deltas": [
			{"date": "2024-01-02", "sqlite_zst": {"path": "b", "sha256": "` + sampleSHA + `", "bytes": 1}},
			{"date": "2024-01-01", "sqlite_zst": {"path": "a", "sha256": "` + sampleSHA + `", "bytes": 1}}]}`,
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); !errors.Is(err, ErrParse) {
			t.Errorf("%s: want ErrParse, got %v", name, err)
		}
	}
}

func TestResolveBaseURL(t *testing.T) {
	hf := "https://example.org/datasets/x/resolve/main/manifest.json"
	if got := baseURL(hf); got != "https://example.org/datasets/x/resolve/main/" {
		t.Fatalf("hf base: %s", got)
	}
	plain := "https://mirror.example.ch/caselaw/manifest.json"
	if got := baseURL(plain); got != "https://mirror.example.ch/caselaw/" {
		t.Fatalf("plain base: %s", got)
	}
}

func TestSetSnapshotResetsDeltas(t *testing.T) {
	m := New()
	m.AddDelta("2024-03-14", FileRef{Path: "a", SHA256: sampleSHA, Bytes: 1})
	m.SetSnapshot("2024-W12", FileRef{Path: "snap", SHA256: sampleSHA, Bytes: 9})
	if len(m.Deltas) != 0 {
		t.Fatalf("deltas should be reset, got %d", len(m.Deltas))
	}
}

func TestAddDeltaDedupesAndSorts(t *testing.T) {
	m := New()
	m.AddDelta("2024-03-15", FileRef{Path: "b", SHA256: sampleSHA, Bytes: 1})
	m.AddDelta("2024-03-14", FileRef{Path: "a", SHA256: sampleSHA, Bytes: 1})
	m.AddDelta("2024-03-15", FileRef{Path: "b2", SHA256: sampleSHA, Bytes: 2})

	if len(m.Deltas) != 2 {
		t.Fatalf("want 2 deltas, got %d", len(m.Deltas))
	}
	if m.Deltas[0].Date != "2024-03-14" || m.Deltas[1].SQLiteZst.Path != "b2" {
		t.Fatalf("unexpected deltas: %+v", m.Deltas)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "manifest.json")

	m := New()
	m.SetSnapshot("2024-W10", FileRef{Path: "snap.zst", SHA256: sampleSHA, Bytes: 42})
	m.AddDelta("2024-03-15", FileRef{Path: "d.zst", SHA256: sampleSHA, Bytes: 7})
	if err := m.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Schema != Schema || got.Snapshot.Week != "2024-W10" || len(got.Deltas) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestISOWeek(t *testing.T) {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if got := ISOWeek(d); got != "2024-W10" {
		t.Fatalf("iso week: %s", got)
	}
}
