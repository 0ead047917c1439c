// CLAUDE:SUMMARY Local event log: update cycles and searches recorded to SQLite, retention cleanup.
// Package observability records domain events (update cycles, searches)
// to a small local SQLite database next to the installed dataset. Writes
// never propagate errors to the caller; a failing event store must not
// break search or sync.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/caselaw/dbopen"
	"github.com/hazyhaar/caselaw/idgen"
)

// Schema contains the DDL for the event tables.
const Schema = `
CREATE TABLE IF NOT EXISTS update_events (
    event_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    snapshot_week TEXT,
    newly_applied INTEGER NOT NULL DEFAULT 0,
    snapshot_swap INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    duration_ms INTEGER NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_update_events_time ON update_events(created_at DESC);

CREATE TABLE IF NOT EXISTS search_events (
    event_id TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    total INTEGER NOT NULL,
    capped INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_search_events_time ON search_events(created_at DESC);
`

// Init applies the event schema to the given database.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// EventLogger writes update and search events.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// Option configures an EventLogger.
type Option func(*EventLogger)

// WithIDGenerator sets a custom ID generator for event IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by the given event database.
func NewEventLogger(db *sql.DB, opts ...Option) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// UpdateEvent describes one finished update cycle.
type UpdateEvent struct {
	Status       string
	SnapshotWeek string
	NewlyApplied int
	SnapshotSwap bool
	Err          error
	Duration     time.Duration
}

// LogUpdate records an update cycle. Errors are logged via slog but do
// not propagate.
func (l *EventLogger) LogUpdate(ctx context.Context, ev UpdateEvent) {
	errText := ""
	if ev.Err != nil {
		errText = ev.Err.Error()
	}
	// Search and update events share the file; busy-retry instead of
	// dropping the event when the other writer holds the lock.
	_, err := dbopen.Exec(ctx, l.db, `
		INSERT INTO update_events (
			event_id, status, snapshot_week, newly_applied, snapshot_swap, error, duration_ms
		) VALUES (?,?,?,?,?,?,?)`,
		l.newID(), ev.Status, ev.SnapshotWeek, ev.NewlyApplied, ev.SnapshotSwap, errText,
		ev.Duration.Milliseconds())
	if err != nil {
		slog.Error("observability: update event log failed", "error", err)
	}
}

// SearchEvent describes one executed search.
type SearchEvent struct {
	Query    string
	Total    int64
	Capped   bool
	Duration time.Duration
}

// LogSearch records a search. Errors are logged via slog but do not
// propagate.
func (l *EventLogger) LogSearch(ctx context.Context, ev SearchEvent) {
	_, err := dbopen.Exec(ctx, l.db, `
		INSERT INTO search_events (event_id, query, total, capped, duration_ms)
		VALUES (?,?,?,?,?)`,
		l.newID(), ev.Query, ev.Total, ev.Capped, ev.Duration.Milliseconds())
	if err != nil {
		slog.Error("observability: search event log failed", "error", err)
	}
}

// RecentUpdates returns the latest update events, newest first.
func (l *EventLogger) RecentUpdates(ctx context.Context, limit int) ([]UpdateRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT status, COALESCE(snapshot_week, ''), newly_applied, snapshot_swap,
		       COALESCE(error, ''), duration_ms, created_at
		FROM update_events ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("observability: recent updates: %w", err)
	}
	defer rows.Close()

	var out []UpdateRow
	for rows.Next() {
		var r UpdateRow
		if err := rows.Scan(&r.Status, &r.SnapshotWeek, &r.NewlyApplied, &r.SnapshotSwap,
			&r.Error, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRow is one persisted update event.
type UpdateRow struct {
	Status       string `json:"status"`
	SnapshotWeek string `json:"snapshot_week,omitempty"`
	NewlyApplied int    `json:"newly_applied"`
	SnapshotSwap bool   `json:"snapshot_swap"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
	CreatedAt    int64  `json:"created_at"`
}

// RetentionConfig specifies per-table retention in days. Zero means no
// cleanup for that table.
type RetentionConfig struct {
	UpdateEventsDays int
	SearchEventsDays int
}

// Cleanup deletes events exceeding the retention thresholds.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()
	targets := []struct {
		table string
		days  int
	}{
		{"update_events", cfg.UpdateEventsDays},
		{"search_events", cfg.SearchEventsDays},
	}
	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		cutoff := now - int64(t.days)*86400
		q := fmt.Sprintf("DELETE FROM %s WHERE created_at < ?", t.table)
		if _, err := dbopen.Exec(ctx, db, q, cutoff); err != nil {
			return fmt.Errorf("observability: cleanup %s: %w", t.table, err)
		}
	}
	return nil
}
