// CLAUDE:SUMMARY Delta merge: ATTACH delta database, upsert every row by id, later delta wins, FTS optimize.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrMerge indicates a delta application failed mid-transaction. The live
// database is left as it was before the merge began.
var ErrMerge = errors.New("store: delta merge failed")

// ApplyDelta upserts every record from the delta-layout database at
// deltaPath into the snapshot-layout db. On an id conflict every non-key
// column is overwritten with the delta's value; re-applying the same delta
// is therefore idempotent. The FTS index is maintained by the table's
// triggers inside the merge transaction. Returns the number of affected
// rows (best effort, -1 when the driver cannot report it).
func ApplyDelta(ctx context.Context, db *sql.DB, deltaPath string) (int64, error) {
	// ATTACH is per-connection; pin one so the attach, the merge and the
	// detach all see the same session.
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: acquire connection: %v", ErrMerge, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS delta`, deltaPath); err != nil {
		return 0, fmt.Errorf("%w: attach %s: %v", ErrMerge, deltaPath, err)
	}
	defer conn.ExecContext(ctx, `DETACH DATABASE delta`)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", ErrMerge, err)
	}

	// The exact upsert construct is driver-dependent; the contract is
	// "insert or overwrite by id, delta values win".
	stmt := fmt.Sprintf(`
		INSERT INTO decisions (%s)
		SELECT %s FROM delta.decisions WHERE true
		ON CONFLICT(id) DO UPDATE SET %s`,
		columnList(), columnList(), upsertSetClause())

	res, err := tx.ExecContext(ctx, stmt)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("%w: upsert: %v", ErrMerge, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", ErrMerge, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = -1
	}

	// Merge is durable at this point; a failed optimize only costs query
	// speed, not correctness.
	if _, err := conn.ExecContext(ctx, `INSERT INTO decisions_fts(decisions_fts) VALUES('optimize')`); err != nil {
		return affected, fmt.Errorf("store: fts optimize after merge: %w", err)
	}
	return affected, nil
}
