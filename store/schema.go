// CLAUDE:SUMMARY Snapshot and delta DDL: decisions table, FTS5 external-content index, sync triggers, meta table.
package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrSchema is returned when a database does not match the expected layout.
var ErrSchema = errors.New("store: unexpected database schema")

// snapshotSchema is the full searchable layout: decisions + narrow filter
// indexes + FTS5 external-content index + meta. Triggers are handled
// separately so bulk loads can defer them until after an FTS rebuild.
const snapshotSchema = `
CREATE TABLE IF NOT EXISTS decisions (
  doc_id INTEGER PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  source_id TEXT,
  source_name TEXT,
  level TEXT,
  canton TEXT,
  court TEXT,
  chamber TEXT,
  language TEXT,
  docket TEXT,
  decision_date TEXT,
  publication_date TEXT,
  title TEXT,
  url TEXT,
  pdf_url TEXT,
  content_text TEXT,
  content_sha256 TEXT,
  fetched_at TEXT,
  updated_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_decisions_decision_date ON decisions(decision_date);
CREATE INDEX IF NOT EXISTS idx_decisions_source_id ON decisions(source_id);
CREATE INDEX IF NOT EXISTS idx_decisions_canton ON decisions(canton);
CREATE INDEX IF NOT EXISTS idx_decisions_language ON decisions(language);
CREATE INDEX IF NOT EXISTS idx_decisions_docket ON decisions(docket);

CREATE VIRTUAL TABLE IF NOT EXISTS decisions_fts USING fts5(
  title,
  docket,
  content_text,
  content='decisions',
  content_rowid='doc_id',
  tokenize='unicode61 remove_diacritics 2',
  prefix='2 3 4'
);

CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT
);
`

// triggersSchema keeps decisions_fts exactly in sync with decisions. Every
// insert, update and delete against the table updates the index in the same
// transaction.
const triggersSchema = `
CREATE TRIGGER IF NOT EXISTS decisions_ai AFTER INSERT ON decisions BEGIN
  INSERT INTO decisions_fts(rowid, title, docket, content_text)
  VALUES (new.doc_id, new.title, new.docket, new.content_text);
END;

CREATE TRIGGER IF NOT EXISTS decisions_ad AFTER DELETE ON decisions BEGIN
  INSERT INTO decisions_fts(decisions_fts, rowid, title, docket, content_text)
  VALUES('delete', old.doc_id, old.title, old.docket, old.content_text);
END;

CREATE TRIGGER IF NOT EXISTS decisions_au AFTER UPDATE ON decisions BEGIN
  INSERT INTO decisions_fts(decisions_fts, rowid, title, docket, content_text)
  VALUES('delete', old.doc_id, old.title, old.docket, old.content_text);
  INSERT INTO decisions_fts(rowid, title, docket, content_text)
  VALUES (new.doc_id, new.title, new.docket, new.content_text);
END;
`

// deltaSchema is the write-optimized incremental layout: decision rows only,
// keyed by id, no FTS.
const deltaSchema = `
CREATE TABLE IF NOT EXISTS decisions (
  id TEXT PRIMARY KEY,
  source_id TEXT,
  source_name TEXT,
  level TEXT,
  canton TEXT,
  court TEXT,
  chamber TEXT,
  language TEXT,
  docket TEXT,
  decision_date TEXT,
  publication_date TEXT,
  title TEXT,
  url TEXT,
  pdf_url TEXT,
  content_text TEXT,
  content_sha256 TEXT,
  fetched_at TEXT,
  updated_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_delta_decision_date ON decisions(decision_date);

CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT
);
`

// EnsureSchema applies the snapshot layout including triggers. Idempotent:
// safe on an already-initialized database.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(snapshotSchema); err != nil {
		return fmt.Errorf("store: apply snapshot schema: %w", err)
	}
	return EnsureTriggers(db)
}

// EnsureTriggers installs the FTS sync triggers if absent.
func EnsureTriggers(db *sql.DB) error {
	if _, err := db.Exec(triggersSchema); err != nil {
		return fmt.Errorf("store: apply triggers: %w", err)
	}
	return nil
}

// EnsureDeltaSchema applies the delta layout.
func EnsureDeltaSchema(db *sql.DB) error {
	if _, err := db.Exec(deltaSchema); err != nil {
		return fmt.Errorf("store: apply delta schema: %w", err)
	}
	return nil
}

// VerifySnapshotSchema checks that db carries a usable snapshot layout
// (decisions table + FTS index). Used after decompressing a downloaded
// snapshot, before it replaces the live database.
func VerifySnapshotSchema(db *sql.DB) error {
	for _, name := range []string{"decisions", "decisions_fts"} {
		var got string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE name = ?`, name).Scan(&got)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: missing %s", ErrSchema, name)
		}
		if err != nil {
			return fmt.Errorf("store: verify schema: %w", err)
		}
	}
	var id string
	err := db.QueryRow(`SELECT name FROM pragma_table_info('decisions') WHERE name = 'id'`).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: decisions table has no id column", ErrSchema)
	}
	if err != nil {
		return fmt.Errorf("store: verify schema: %w", err)
	}
	return nil
}
