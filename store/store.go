// CLAUDE:SUMMARY Write-path operations: batched bulk insert, FTS rebuild/optimize, vacuum-into, corpus stats.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/caselaw/dbopen"
)

// InsertMode selects the target physical layout for bulk loads.
type InsertMode int

const (
	// ModeSnapshot targets the full searchable layout. Inserts go through
	// the decisions table; the FTS index is rebuilt afterwards in bulk.
	ModeSnapshot InsertMode = iota
	// ModeDelta targets the write-optimized incremental layout.
	ModeDelta
)

const bulkBatchSize = 2000

// BulkInsert upserts records in batches of 2000 using INSERT OR REPLACE.
// Each batch runs in one transaction with busy-retry, so a concurrent
// reader on the same file only delays a batch instead of failing it.
// Snapshot bulk loads should be followed by RebuildFTS; delta databases
// carry no index. Returns the number of rows written.
func BulkInsert(ctx context.Context, db *sql.DB, records []Record, mode InsertMode) (int, error) {
	_ = mode // both layouts share the canonical column set
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO decisions (%s) VALUES (%s)", columnList(), placeholders())

	inserted := 0
	for start := 0; start < len(records); start += bulkBatchSize {
		end := min(start+bulkBatchSize, len(records))
		batch := records[start:end]

		err := dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
			prepared, err := tx.PrepareContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("store: prepare bulk insert: %w", err)
			}
			defer prepared.Close()
			for _, r := range batch {
				if _, err := prepared.ExecContext(ctx, r.args()...); err != nil {
					return fmt.Errorf("store: insert %s: %w", r.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return inserted, err
		}
		inserted += len(batch)
	}
	return inserted, nil
}

// RebuildFTS rebuilds the FTS index from the decisions table, runs an
// optimize pass and makes sure the sync triggers are installed. Used after
// bulk snapshot construction; normal operation relies on the triggers alone.
func RebuildFTS(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `INSERT INTO decisions_fts(decisions_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("store: fts rebuild: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO decisions_fts(decisions_fts) VALUES('optimize')`); err != nil {
		return fmt.Errorf("store: fts optimize: %w", err)
	}
	return EnsureTriggers(db)
}

// VacuumInto writes a compacted, defragmented copy of db to dstPath.
func VacuumInto(ctx context.Context, db *sql.DB, dstPath string) error {
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dstPath); err != nil {
		return fmt.Errorf("store: vacuum into %s: %w", dstPath, err)
	}
	return nil
}

// Stats summarizes the corpus: row count and last update timestamp.
type Stats struct {
	Count      int64  `json:"count"`
	LastUpdate string `json:"last_update,omitempty"`
	MinDate    string `json:"min_date,omitempty"`
	MaxDate    string `json:"max_date,omitempty"`
}

// ReadStats returns corpus-level statistics.
func ReadStats(ctx context.Context, db *sql.DB) (*Stats, error) {
	var s Stats
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&s.Count); err != nil {
		return nil, fmt.Errorf("store: count: %w", err)
	}
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(updated_at), ''),
		       COALESCE(MIN(decision_date), ''),
		       COALESCE(MAX(decision_date), '')
		FROM decisions`).Scan(&s.LastUpdate, &s.MinDate, &s.MaxDate)
	if err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	return &s, nil
}

// CountBy returns value→count aggregations for one of the low-cardinality
// filter columns (level, language, canton, source_name).
func CountBy(ctx context.Context, db *sql.DB, column string, limit int) (map[string]int64, error) {
	switch column {
	case "level", "language", "canton", "source_name":
	default:
		return nil, fmt.Errorf("store: CountBy: unsupported column %q", column)
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(*) FROM decisions
		WHERE %s IS NOT NULL AND %s != ''
		GROUP BY %s ORDER BY COUNT(*) DESC LIMIT ?`, column, column, column, column), limit)
	if err != nil {
		return nil, fmt.Errorf("store: CountBy %s: %w", column, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var value string
		var n int64
		if err := rows.Scan(&value, &n); err != nil {
			return nil, err
		}
		out[value] = n
	}
	return out, rows.Err()
}
