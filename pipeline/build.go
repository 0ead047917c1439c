// CLAUDE:SUMMARY Delta and snapshot artifact builds: ingest, FTS rebuild, vacuum, zstd, file metas.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/caselaw/dbopen"
	"github.com/hazyhaar/caselaw/manifest"
	"github.com/hazyhaar/caselaw/store"
	"github.com/hazyhaar/caselaw/transfer"
)

// insertBatch is how many records are buffered per bulk insert.
const insertBatch = 2000

// BuildResult describes one finished artifact build.
type BuildResult struct {
	SQLitePath string
	ZstPath    string
	Rows       int
}

// FileMeta hashes and sizes a built artifact for publication under
// pathInRepo.
func FileMeta(path, pathInRepo string) (manifest.FileRef, error) {
	sha, err := transfer.SHA256File(path)
	if err != nil {
		return manifest.FileRef{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return manifest.FileRef{}, fmt.Errorf("pipeline: stat %s: %w", path, err)
	}
	return manifest.FileRef{Path: pathInRepo, SHA256: sha, Bytes: fi.Size()}, nil
}

// BuildDelta builds delta-<date>.sqlite.zst in outDir from a JSONL export.
// The delta layout has no FTS index; the merge on the client side keeps
// the snapshot's index consistent.
func BuildDelta(ctx context.Context, exportPath, outDir, date string) (*BuildResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create build dir: %w", err)
	}
	sqlitePath := filepath.Join(outDir, fmt.Sprintf("delta-%s.sqlite", date))
	os.Remove(sqlitePath)

	db, err := dbopen.Open(sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create delta db: %w", err)
	}
	if err := store.EnsureDeltaSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	rows, err := ingest(ctx, db, exportPath, store.ModeDelta)
	db.Close()
	if err != nil {
		return nil, err
	}

	zstPath := sqlitePath + ".zst"
	if err := transfer.CompressZst(sqlitePath, zstPath); err != nil {
		return nil, err
	}
	return &BuildResult{SQLitePath: sqlitePath, ZstPath: zstPath, Rows: rows}, nil
}

// BuildSnapshot builds swiss-caselaw-<week>.sqlite.zst in outDir: full
// snapshot layout, FTS rebuilt from scratch, compacted with VACUUM INTO
// before compression.
func BuildSnapshot(ctx context.Context, exportPath, outDir, week string) (*BuildResult, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create build dir: %w", err)
	}
	workPath := filepath.Join(outDir, fmt.Sprintf("swiss-caselaw-%s.work.sqlite", week))
	os.Remove(workPath)

	db, err := dbopen.Open(workPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create snapshot db: %w", err)
	}
	if err := store.EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	rows, err := ingest(ctx, db, exportPath, store.ModeSnapshot)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := store.RebuildFTS(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	sqlitePath := filepath.Join(outDir, fmt.Sprintf("swiss-caselaw-%s.sqlite", week))
	os.Remove(sqlitePath)
	if err := store.VacuumInto(ctx, db, sqlitePath); err != nil {
		db.Close()
		return nil, err
	}
	db.Close()
	os.Remove(workPath)

	zstPath := sqlitePath + ".zst"
	if err := transfer.CompressZst(sqlitePath, zstPath); err != nil {
		return nil, err
	}
	return &BuildResult{SQLitePath: sqlitePath, ZstPath: zstPath, Rows: rows}, nil
}

// ingest streams the export into db in batches of insertBatch records.
func ingest(ctx context.Context, db *sql.DB, exportPath string, mode store.InsertMode) (int, error) {
	total := 0
	batch := make([]store.Record, 0, insertBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.BulkInsert(ctx, db, batch, mode)
		total += n
		batch = batch[:0]
		return err
	}

	err := EachRecord(exportPath, func(d RawDecision) error {
		batch = append(batch, Normalize(d))
		if len(batch) >= insertBatch {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
