// CLAUDE:SUMMARY Tests for record normalization, JSONL export streaming, and artifact builds.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/klauspost/compress/gzip"

	"github.com/hazyhaar/caselaw/dbopen"
	"github.com/hazyhaar/caselaw/store"
	"github.com/hazyhaar/caselaw/transfer"
)

func TestNormalizeDefaults(t *testing.T) {
	r := Normalize(RawDecision{Record: store.Record{
		SourceID:    "bger",
		SourceName:  "Bundesgericht",
		Level:       "federal",
		Title:       "Titel",
		Docket:      "6B_1/2026",
		URL:         "https://example.ch/1",
		ContentText: "Erwägungen",
	}})
	if r.ID == "" {
		t.Error("id not derived")
	}
	if len(r.ContentSHA256) != 64 {
		t.Errorf("content_sha256 = %q", r.ContentSHA256)
	}
	if r.FetchedAt == "" || r.UpdatedAt == "" {
		t.Error("timestamps not defaulted")
	}
}

// WHAT: the derived id depends only on source id and URL.
// WHY: re-ingesting a corrected decision must update the same row, not
// create a second identity.
func TestNormalizeStableID(t *testing.T) {
	base := store.Record{SourceID: "bger", URL: "https://example.ch/1", Title: "A", ContentText: "x"}
	first := Normalize(RawDecision{Record: base})
	changed := base
	changed.Title = "B (berichtigt)"
	second := Normalize(RawDecision{Record: changed})
	if first.ID != second.ID {
		t.Errorf("ids diverged: %s vs %s", first.ID, second.ID)
	}
	if first.ContentSHA256 == second.ContentSHA256 {
		t.Error("content hash should change when the title changes")
	}

	other := Normalize(RawDecision{Record: store.Record{SourceID: "bger", URL: "https://example.ch/2"}})
	if other.ID == first.ID {
		t.Error("different URLs produced the same id")
	}
}

func TestNormalizeLegacyFields(t *testing.T) {
	r := Normalize(RawDecision{
		Record:        store.Record{SourceID: "bger", Title: "T", ContentText: "x"},
		PublishedDate: "2026-02-01",
		PDF:           "https://example.ch/d.pdf",
		Permalink:     "https://example.ch/d",
	})
	if r.PublicationDate != "2026-02-01" || r.PDFURL != "https://example.ch/d.pdf" || r.URL != "https://example.ch/d" {
		t.Errorf("legacy fields not mapped: %+v", r)
	}

	// Canonical names win over legacy ones.
	r = Normalize(RawDecision{
		Record:    store.Record{URL: "https://example.ch/canonical"},
		Permalink: "https://example.ch/legacy",
	})
	if r.URL != "https://example.ch/canonical" {
		t.Errorf("url = %q", r.URL)
	}

	// A supplied hash is kept as-is.
	r = Normalize(RawDecision{Record: store.Record{ContentSHA256: "supplied"}})
	if r.ContentSHA256 != "supplied" {
		t.Errorf("content_sha256 = %q", r.ContentSHA256)
	}
}

func writeExport(t *testing.T, lines []string, gzipped bool) string {
	t.Helper()
	name := "export.jsonl"
	if gzipped {
		name += ".gz"
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create export: %v", err)
	}
	defer f.Close()
	content := strings.Join(lines, "\n") + "\n"
	if gzipped {
		gz := gzip.NewWriter(f)
		if _, err := gz.Write([]byte(content)); err != nil {
			t.Fatalf("write gz: %v", err)
		}
		if err := gz.Close(); err != nil {
			t.Fatalf("close gz: %v", err)
		}
	} else if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

func exportLine(t *testing.T, id, title string) string {
	t.Helper()
	data, err := json.Marshal(map[string]string{
		"id": id, "source_id": "bger", "source_name": "Bundesgericht",
		"level": "federal", "title": title, "url": "https://example.ch/" + id,
		"content_text": "Erwägungen zu " + title, "decision_date": "2026-03-01",
	})
	if err != nil {
		t.Fatalf("marshal line: %v", err)
	}
	return string(data)
}

func TestEachRecord(t *testing.T) {
	path := writeExport(t, []string{
		exportLine(t, "d1", "Eins"),
		"",
		exportLine(t, "d2", "Zwei"),
	}, false)

	var ids []string
	err := EachRecord(path, func(d RawDecision) error {
		ids = append(ids, d.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("each record: %v", err)
	}
	if len(ids) != 2 || ids[0] != "d1" || ids[1] != "d2" {
		t.Errorf("ids = %v", ids)
	}
}

func TestEachRecordGzip(t *testing.T) {
	path := writeExport(t, []string{exportLine(t, "d1", "Eins")}, true)
	var n int
	if err := EachRecord(path, func(RawDecision) error { n++; return nil }); err != nil {
		t.Fatalf("each record: %v", err)
	}
	if n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

func TestEachRecordBadLine(t *testing.T) {
	path := writeExport(t, []string{exportLine(t, "d1", "Eins"), "{not json"}, false)
	err := EachRecord(path, func(RawDecision) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v, want line-numbered parse error", err)
	}
}

func TestBuildDelta(t *testing.T) {
	export := writeExport(t, []string{exportLine(t, "d1", "Eins"), exportLine(t, "d2", "Zwei")}, false)
	out := t.TempDir()

	res, err := BuildDelta(context.Background(), export, out, "2026-03-10")
	if err != nil {
		t.Fatalf("build delta: %v", err)
	}
	if res.Rows != 2 {
		t.Errorf("rows = %d, want 2", res.Rows)
	}

	db, err := dbopen.Open(res.SQLitePath, dbopen.WithReadOnly())
	if err != nil {
		t.Fatalf("open built delta: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM decisions`).Scan(&n); err != nil || n != 2 {
		t.Errorf("delta rows = %d (err %v)", n, err)
	}
	// Delta layout carries no FTS index.
	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE name = 'decisions_fts'`).Scan(&name)
	if err == nil {
		t.Error("delta database must not contain an FTS table")
	}

	// The zst artifact round-trips.
	back := filepath.Join(t.TempDir(), "delta.sqlite")
	if err := transfer.DecompressZst(res.ZstPath, back); err != nil {
		t.Fatalf("decompress built delta: %v", err)
	}
}

func TestBuildSnapshot(t *testing.T) {
	export := writeExport(t, []string{exportLine(t, "d1", "Mietrecht"), exportLine(t, "d2", "Steuerrecht")}, false)
	out := t.TempDir()

	res, err := BuildSnapshot(context.Background(), export, out, "2026-W11")
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	if res.Rows != 2 {
		t.Errorf("rows = %d, want 2", res.Rows)
	}

	db, err := dbopen.Open(res.SQLitePath, dbopen.WithReadOnly())
	if err != nil {
		t.Fatalf("open built snapshot: %v", err)
	}
	defer db.Close()
	if err := store.VerifySnapshotSchema(db); err != nil {
		t.Errorf("built snapshot schema: %v", err)
	}
	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM decisions_fts WHERE decisions_fts MATCH ?`, "Mietrecht").Scan(&n)
	if err != nil || n != 1 {
		t.Errorf("snapshot FTS: n=%d err=%v", n, err)
	}
}

func TestFileMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ref, err := FileMeta(path, "artifacts/sqlite/deltas/2026-03-10.sqlite.zst")
	if err != nil {
		t.Fatalf("file meta: %v", err)
	}
	if ref.SHA256 != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("sha256 = %s", ref.SHA256)
	}
	if ref.Bytes != 3 || ref.Path != "artifacts/sqlite/deltas/2026-03-10.sqlite.zst" {
		t.Errorf("ref = %+v", ref)
	}
}
