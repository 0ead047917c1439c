// CLAUDE:SUMMARY Service façade: validated search with fuzzy fallbacks, doc access, stats, update, citations.
// Package caselaw wires the sync updater, the ranked searcher, query
// validation, and the fuzzy suggestion cache into one service surface
// shared by the CLI, the HTTP API, and the MCP tools.
package caselaw

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/caselaw/dbopen"
	"github.com/hazyhaar/caselaw/dbsync"
	"github.com/hazyhaar/caselaw/fuzzy"
	"github.com/hazyhaar/caselaw/observability"
	"github.com/hazyhaar/caselaw/queryparse"
	"github.com/hazyhaar/caselaw/search"
	"github.com/hazyhaar/caselaw/store"
)

// Service is the main caselaw orchestrator.
type Service struct {
	updater  *dbsync.Updater
	fuzzy    *fuzzy.Cache
	logger   *slog.Logger
	config   *Config
	dbHandle func() *sql.DB
	events   *observability.EventLogger
	eventsDB *sql.DB
}

// New creates a caselaw Service over the given config. The suggestion
// cache is invalidated whenever the updater swaps in a new database.
func New(cfg *Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	u := dbsync.New(cfg.DataDir, cfg.ManifestURL, dbsync.WithLogger(logger))
	cache := fuzzy.NewCache()
	u.OnSwap(cache.Clear)

	svc := &Service{
		updater:  u,
		fuzzy:    cache,
		logger:   logger,
		config:   cfg,
		dbHandle: u.DB,
	}

	// The event log lives next to the dataset; losing it never blocks
	// the service.
	eventsPath := filepath.Join(cfg.DataDir, "events.sqlite")
	eventsDB, err := dbopen.Open(eventsPath, dbopen.WithMkdirAll())
	if err != nil {
		logger.Warn("event log unavailable", "path", eventsPath, "error", err)
	} else if err := observability.Init(eventsDB); err != nil {
		logger.Warn("event log schema", "error", err)
		eventsDB.Close()
	} else {
		svc.eventsDB = eventsDB
		svc.events = observability.NewEventLogger(eventsDB)
	}

	return svc, nil
}

// Close releases the live database handle and the event log.
func (s *Service) Close() error {
	if s.eventsDB != nil {
		s.eventsDB.Close()
	}
	return s.updater.Close()
}

// db returns the live read-only handle, or ErrNotInstalled before the
// first successful update.
func (s *Service) db() (*sql.DB, error) {
	h := s.dbHandle()
	if h == nil {
		return nil, ErrNotInstalled
	}
	return h, nil
}

// Response is the answer to a search call. On a syntax error the page
// carries the original query with empty results, and Message/Suggestion
// describe the problem; the query is never executed.
type Response struct {
	Error      bool   `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	DidYouMean string `json:"did_you_mean,omitempty"`
	*search.Page
}

func errorResponse(q, message, suggestion string) *Response {
	return &Response{
		Error:      true,
		Message:    message,
		Suggestion: suggestion,
		Page:       &search.Page{Query: q, Results: []search.Hit{}},
	}
}

// Search validates the query, executes it, and decorates the result:
// invalid syntax returns a structured error response instead of hitting
// FTS5, and a valid query with zero hits gets a did-you-mean suggestion
// from the trigram cache.
func (s *Service) Search(ctx context.Context, req search.Request) (*Response, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	q := strings.TrimSpace(req.Query)
	if q != "" {
		v := queryparse.Validate(q)
		if !v.Valid {
			return errorResponse(q, v.Error, v.Suggestion), nil
		}
		q = v.Sanitized
	}
	req.Query = q

	started := time.Now()
	page, err := search.Search(ctx, db, req)
	if err != nil {
		// FTS5 can still reject constructs the validator does not
		// model; answer those with a fuzzy suggestion rather than a
		// bare failure.
		msg := err.Error()
		if strings.Contains(strings.ToLower(msg), "fts5") || strings.Contains(strings.ToLower(msg), "syntax") {
			suggestion := ""
			terms := queryparse.ExtractTerms(q)
			if fixes := s.fuzzy.SuggestTerms(ctx, db, terms, 1); len(fixes) > 0 {
				suggestion = fixes[0].Suggestion
			}
			return errorResponse(q, fmt.Sprintf("search syntax error: %s", msg), suggestion), nil
		}
		return nil, fmt.Errorf("caselaw: search: %w", err)
	}

	if s.events != nil {
		s.events.LogSearch(ctx, observability.SearchEvent{
			Query:    q,
			Total:    int64(page.Total),
			Capped:   page.TotalCapped,
			Duration: time.Since(started),
		})
	}

	resp := &Response{Page: page}
	if q != "" && page.Total == 0 {
		if alt, ok := s.fuzzy.Suggest(ctx, db, q); ok {
			resp.DidYouMean = alt
		}
	}
	return resp, nil
}

// GetDoc returns the full decision record for an id.
func (s *Service) GetDoc(ctx context.Context, id string) (*store.Record, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return search.GetDoc(ctx, db, id)
}

// SuggestPrefix returns typeahead suggestions for a title/docket prefix.
func (s *Service) SuggestPrefix(ctx context.Context, prefix string, limit int) ([]search.Suggestion, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	return search.SuggestPrefix(ctx, db, prefix, limit)
}

// Export returns a flat result set for CSV/JSON export. The query goes
// through the same validation as Search but invalid syntax is a hard
// error here.
func (s *Service) Export(ctx context.Context, q string, f search.Filters, maxResults int) ([]search.ExportRow, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if q != "" {
		v := queryparse.Validate(q)
		if !v.Valid {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, v.Error)
		}
		q = v.Sanitized
	}
	return search.Export(ctx, db, q, f, maxResults)
}

// Stats aggregates corpus statistics for the dashboard and MCP.
type Stats struct {
	Store      *store.Stats     `json:"store"`
	ByLanguage map[string]int64 `json:"by_language"`
	ByCanton   map[string]int64 `json:"by_canton"`
	BySource   map[string]int64 `json:"by_source"`
}

// Stats reads corpus-level counts plus language/canton/source breakdowns.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	st, err := store.ReadStats(ctx, db)
	if err != nil {
		return nil, err
	}
	out := &Stats{Store: st}
	if out.ByLanguage, err = store.CountBy(ctx, db, "language", 20); err != nil {
		return nil, err
	}
	if out.ByCanton, err = store.CountBy(ctx, db, "canton", 40); err != nil {
		return nil, err
	}
	if out.BySource, err = store.CountBy(ctx, db, "source_name", 100); err != nil {
		return nil, err
	}
	return out, nil
}

// Update runs one manifest-driven sync cycle.
func (s *Service) Update(ctx context.Context) (*dbsync.Result, error) {
	started := time.Now()
	res, err := s.updater.Update(ctx)
	if s.events != nil {
		ev := observability.UpdateEvent{Err: err, Duration: time.Since(started)}
		if res != nil {
			ev.Status = res.Status
			ev.SnapshotWeek = res.SnapshotWeek
			ev.NewlyApplied = len(res.NewlyApplied)
			ev.SnapshotSwap = res.SnapshotSwap
		} else {
			ev.Status = "error"
		}
		s.events.LogUpdate(ctx, ev)
	}
	return res, err
}

// RecentUpdates returns the latest recorded update cycles, newest first.
func (s *Service) RecentUpdates(ctx context.Context, limit int) ([]observability.UpdateRow, error) {
	if s.events == nil {
		return nil, nil
	}
	return s.events.RecentUpdates(ctx, limit)
}

// Status reports the local install state and configuration.
func (s *Service) Status() map[string]any {
	st := s.updater.Status()
	st["data_dir"] = s.config.DataDir
	st["manifest_url"] = s.config.ManifestURL
	return st
}
