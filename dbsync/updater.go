// CLAUDE:SUMMARY Pull-based snapshot/delta updater with atomic database swap and swap callbacks.
// Package dbsync keeps the local decision database in step with a remote
// manifest. One update cycle fetches the manifest, installs a new weekly
// snapshot when the week changed, replays unapplied daily deltas in
// manifest order, and atomically swaps the read-only handle that serves
// queries. Readers never see a half-updated database.
package dbsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/caselaw/dbopen"
	"github.com/hazyhaar/caselaw/manifest"
	"github.com/hazyhaar/caselaw/store"
	"github.com/hazyhaar/caselaw/transfer"
)

const (
	dbFile       = "caselaw.sqlite"
	downloadsDir = "downloads"
)

// ErrNoSnapshot means the remote manifest carries no snapshot yet; the
// publisher must push an initial weekly snapshot before clients can sync.
var ErrNoSnapshot = errors.New("dbsync: remote manifest has no snapshot")

// ErrUpdateInFlight is returned when an update cycle is already running.
var ErrUpdateInFlight = errors.New("dbsync: update already in progress")

// Update outcome statuses.
const (
	StatusUpdated  = "updated"
	StatusNoChange = "no_change"
)

// Result summarizes one update cycle.
type Result struct {
	Status       string   `json:"status"`
	SnapshotWeek string   `json:"snapshot_week"`
	NewlyApplied []string `json:"applied_deltas"`
	TotalApplied int      `json:"total_applied_deltas"`
	SnapshotSwap bool     `json:"snapshot_swapped"`
}

// Updater syncs a data directory against a remote manifest and maintains
// the read-only database handle used for searching.
type Updater struct {
	dataDir     string
	manifestURL string
	client      *http.Client
	logger      *slog.Logger
	keep        bool

	updating atomic.Bool
	db       atomic.Pointer[sql.DB]

	mu           sync.Mutex
	onSwap       []func()
	lastUpdateAt atomic.Int64
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient replaces the HTTP client used for manifest and artifact
// downloads.
func WithHTTPClient(c *http.Client) Option { return func(u *Updater) { u.client = c } }

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option { return func(u *Updater) { u.logger = l } }

// WithKeepDownloads retains downloaded artifacts after they are applied,
// for debugging. By default they are removed.
func WithKeepDownloads() Option { return func(u *Updater) { u.keep = true } }

// New creates an Updater over dataDir. If a database is already installed
// there it is opened immediately, so searches work offline before the
// first update.
func New(dataDir, manifestURL string, opts ...Option) *Updater {
	u := &Updater{
		dataDir:     dataDir,
		manifestURL: manifestURL,
		client:      &http.Client{Timeout: 5 * time.Minute},
		logger:      slog.Default(),
	}
	for _, fn := range opts {
		fn(u)
	}

	path := u.DBPath()
	if _, err := os.Stat(path); err == nil {
		if db, err := openReadOnly(path); err == nil {
			u.db.Store(db)
			u.logger.Info("dbsync: loaded existing database", "path", path)
		} else {
			u.logger.Warn("dbsync: existing database unusable", "path", path, "error", err)
		}
	}
	return u
}

// DBPath returns the path of the installed database file.
func (u *Updater) DBPath() string { return filepath.Join(u.dataDir, dbFile) }

// DB returns the current read-only database handle, or nil when no
// snapshot has been installed yet.
func (u *Updater) DB() *sql.DB { return u.db.Load() }

// OnSwap registers a callback fired after the live handle changes.
// Callbacks run synchronously in registration order.
func (u *Updater) OnSwap(fn func()) {
	u.mu.Lock()
	u.onSwap = append(u.onSwap, fn)
	u.mu.Unlock()
}

// Ping reports whether a usable database is installed.
func (u *Updater) Ping(ctx context.Context) error {
	db := u.db.Load()
	if db == nil {
		return errors.New("dbsync: no database installed yet")
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("dbsync: database unreachable: %w", err)
	}
	return nil
}

// Status returns a JSON-serializable state summary.
func (u *Updater) Status() map[string]any {
	st, err := loadState(u.dataDir)
	if err != nil {
		st = &State{}
	}
	out := map[string]any{
		"snapshot_week":        st.SnapshotWeek,
		"total_applied_deltas": len(st.AppliedDeltas),
		"remote_generated_at":  st.RemoteGeneratedAt,
		"has_db":               u.db.Load() != nil,
		"updating":             u.updating.Load(),
	}
	if ts := u.lastUpdateAt.Load(); ts > 0 {
		out["last_update_at"] = ts
		out["age_seconds"] = int64(time.Since(time.Unix(ts, 0)).Seconds())
	}
	return out
}

// Close closes the live database handle.
func (u *Updater) Close() error {
	if db := u.db.Load(); db != nil {
		return db.Close()
	}
	return nil
}

// Update runs one sync cycle. Only one cycle runs at a time; a concurrent
// call fails fast with ErrUpdateInFlight. On a delta failure the deltas
// applied before it stay recorded, so the next cycle resumes after them.
func (u *Updater) Update(ctx context.Context) (*Result, error) {
	if !u.updating.CompareAndSwap(false, true) {
		return nil, ErrUpdateInFlight
	}
	defer u.updating.Store(false)

	downloads := filepath.Join(u.dataDir, downloadsDir)
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		return nil, fmt.Errorf("dbsync: create data dir: %w", err)
	}

	st, err := loadState(u.dataDir)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(ctx, u.client, u.manifestURL)
	if err != nil {
		return nil, err
	}
	if m.Snapshot == nil {
		return nil, ErrNoSnapshot
	}

	dbPath := u.DBPath()
	swapped := false

	if _, statErr := os.Stat(dbPath); statErr != nil || st.SnapshotWeek != m.Snapshot.Week {
		if err := u.installSnapshot(ctx, m, downloads); err != nil {
			return nil, err
		}
		st.SnapshotWeek = m.Snapshot.Week
		st.AppliedDeltas = nil
		if err := saveState(u.dataDir, st); err != nil {
			return nil, err
		}
		swapped = true
	}

	newlyApplied, deltaErr := u.applyDeltas(ctx, m, st, downloads)

	// The remote generation stamp marks a completed sync against that
	// manifest; a cycle that failed mid-replay must not claim it.
	if deltaErr == nil {
		st.RemoteGeneratedAt = m.GeneratedAt
		if err := saveState(u.dataDir, st); err != nil {
			deltaErr = err
		}
	}

	// A week-change swap already happened inside installSnapshot, so only
	// delta replay needs a fresh handle here.
	if len(newlyApplied) > 0 {
		if err := u.swapHandle(); err != nil && deltaErr == nil {
			deltaErr = err
		}
	}
	u.lastUpdateAt.Store(time.Now().Unix())

	if deltaErr != nil {
		return nil, deltaErr
	}

	res := &Result{
		Status:       StatusNoChange,
		SnapshotWeek: st.SnapshotWeek,
		NewlyApplied: newlyApplied,
		TotalApplied: len(st.AppliedDeltas),
		SnapshotSwap: swapped,
	}
	if swapped || len(newlyApplied) > 0 {
		res.Status = StatusUpdated
	}
	u.logger.Info("dbsync: update cycle done",
		"status", res.Status, "week", res.SnapshotWeek, "new_deltas", len(newlyApplied))
	return res, nil
}

// installSnapshot downloads, verifies, and atomically installs the
// manifest's snapshot, replacing any existing database.
func (u *Updater) installSnapshot(ctx context.Context, m *manifest.Manifest, downloads string) error {
	ref := m.Snapshot.SQLiteZst
	zstPath := filepath.Join(downloads, fmt.Sprintf("snapshot-%s.sqlite.zst", m.Snapshot.Week))

	u.logger.Info("dbsync: downloading snapshot", "week", m.Snapshot.Week, "bytes", ref.Bytes)
	if err := transfer.Download(ctx, u.client, m.FileURL(ref), zstPath, ref.SHA256); err != nil {
		return err
	}

	tmpSQLite := filepath.Join(downloads, fmt.Sprintf("snapshot-%s.sqlite", m.Snapshot.Week))
	if err := transfer.DecompressZst(zstPath, tmpSQLite); err != nil {
		return err
	}
	if !u.keep {
		defer os.Remove(zstPath)
	}

	// Sanity-check the artifact and make sure triggers exist before it
	// goes live.
	db, err := dbopen.Open(tmpSQLite)
	if err != nil {
		return fmt.Errorf("dbsync: open downloaded snapshot: %w", err)
	}
	if err := store.VerifySnapshotSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := store.EnsureSchema(db); err != nil {
		db.Close()
		return err
	}
	db.Close()

	// The old handle keeps serving readers across the rename; a failed
	// rename leaves the previous install untouched and live. Stale WAL
	// sidecars of the replaced file are removed only once the new file is
	// in place, then the handle swap brings readers onto it.
	dbPath := u.DBPath()
	if err := os.Rename(tmpSQLite, dbPath); err != nil {
		return fmt.Errorf("dbsync: install snapshot: %w", err)
	}
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")
	if err := u.swapHandle(); err != nil {
		return err
	}
	u.logger.Info("dbsync: snapshot installed", "week", m.Snapshot.Week)
	return nil
}

// applyDeltas replays unapplied deltas in manifest order. It stops at the
// first failure; deltas already merged are recorded in st so the next
// cycle does not repeat them.
func (u *Updater) applyDeltas(ctx context.Context, m *manifest.Manifest, st *State, downloads string) ([]string, error) {
	pending := make([]manifest.Delta, 0, len(m.Deltas))
	applied := make(map[string]bool, len(st.AppliedDeltas))
	for _, d := range st.AppliedDeltas {
		applied[d] = true
	}
	for _, d := range m.Deltas {
		if !applied[d.Date] {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	db, err := dbopen.Open(u.DBPath())
	if err != nil {
		return nil, fmt.Errorf("dbsync: open database for merge: %w", err)
	}
	defer db.Close()

	var newlyApplied []string
	for _, d := range pending {
		zstPath := filepath.Join(downloads, fmt.Sprintf("delta-%s.sqlite.zst", d.Date))
		if err := transfer.Download(ctx, u.client, m.FileURL(d.SQLiteZst), zstPath, d.SQLiteZst.SHA256); err != nil {
			return newlyApplied, err
		}
		deltaPath := filepath.Join(downloads, fmt.Sprintf("delta-%s.sqlite", d.Date))
		if err := transfer.DecompressZst(zstPath, deltaPath); err != nil {
			return newlyApplied, err
		}

		n, err := store.ApplyDelta(ctx, db, deltaPath)
		if !u.keep {
			os.Remove(zstPath)
			os.Remove(deltaPath)
		}
		if err != nil {
			return newlyApplied, fmt.Errorf("dbsync: delta %s: %w", d.Date, err)
		}

		st.AppliedDeltas = append(st.AppliedDeltas, d.Date)
		newlyApplied = append(newlyApplied, d.Date)
		if err := saveState(u.dataDir, st); err != nil {
			return newlyApplied, err
		}
		u.logger.Info("dbsync: delta applied", "date", d.Date, "rows", n)
	}
	return newlyApplied, nil
}

// swapHandle replaces the live read-only handle and fires swap callbacks.
func (u *Updater) swapHandle() error {
	db, err := openReadOnly(u.DBPath())
	if err != nil {
		return fmt.Errorf("dbsync: reopen database: %w", err)
	}

	u.mu.Lock()
	if old := u.db.Load(); old != nil {
		old.Close()
	}
	u.db.Store(db)
	callbacks := make([]func(), len(u.onSwap))
	copy(callbacks, u.onSwap)
	u.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func openReadOnly(path string) (*sql.DB, error) {
	return dbopen.Open(path, dbopen.WithReadOnly())
}
