// CLAUDE:SUMMARY Ranked FTS5 search over decisions: composite scoring, capped counts, facets, export.
// Package search runs read-only queries against an installed decision
// snapshot. An empty query is browse mode (exact counts, date ordering);
// a non-empty query goes through FTS5 with a composite rank of BM25,
// freshness, and exact title/docket bonuses. The database handle comes
// from the caller on every call so searches always hit the currently
// installed snapshot.
package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPageSize  = 20
	MaxPageSize      = 100
	FacetSampleLimit = 5000
	// CountCap bounds result counting; totals at the cap are reported
	// as capped rather than exact.
	CountCap = 10000
	// MaxExportRows bounds Export regardless of the caller's request.
	MaxExportRows = 10000

	// Ranking weights. BM25 is lower-is-better, so bonuses subtract.
	freshnessWeight  = 0.5
	titleMatchBonus  = 2.0
	docketMatchBonus = 3.0
	freshnessYears   = 2
)

// ErrNotFound is returned by GetDoc for an unknown document id.
var ErrNotFound = errors.New("search: document not found")

// Filters restricts a search to structured metadata. All list filters are
// OR within a field and AND across fields.
type Filters struct {
	Canton   []string `json:"canton,omitempty"`
	Language []string `json:"language,omitempty"`
	Level    []string `json:"level,omitempty"`
	SourceID []string `json:"source_id,omitempty"`
	DateFrom string   `json:"date_from,omitempty"`
	DateTo   string   `json:"date_to,omitempty"`
	// Docket is a prefix match on the docket number, outside FTS.
	Docket string `json:"docket,omitempty"`
}

// Request is one search call.
type Request struct {
	Query    string
	Filters  Filters
	Page     int
	PageSize int
	// Sort is one of relevance, date_desc, date_asc. Unknown values
	// fall back to relevance.
	Sort string
}

// Hit is one result row. Rank is only set in full-text mode.
type Hit struct {
	ID              string  `json:"id"`
	SourceName      string  `json:"source_name"`
	Canton          string  `json:"canton,omitempty"`
	Level           string  `json:"level"`
	Language        string  `json:"language,omitempty"`
	Docket          string  `json:"docket,omitempty"`
	DecisionDate    string  `json:"decision_date,omitempty"`
	PublicationDate string  `json:"publication_date,omitempty"`
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	PDFURL          string  `json:"pdf_url,omitempty"`
	Snippet         string  `json:"snippet"`
	Rank            float64 `json:"rank,omitempty"`
}

// FacetCount is one facet bucket. An empty Value groups documents where
// the field is unset.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets are per-field result distributions. In full-text mode they are
// computed over a sample of top hits to keep latency predictable.
type Facets struct {
	Language   []FacetCount `json:"language"`
	Canton     []FacetCount `json:"canton"`
	SourceName []FacetCount `json:"source_name"`
}

// Page is one page of search results.
type Page struct {
	Query       string `json:"query"`
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
	Total       int    `json:"total"`
	TotalCapped bool   `json:"total_capped"`
	Results     []Hit  `json:"results"`
	Facets      Facets `json:"facets"`
}

// buildFilterSQL renders Filters into an " AND ..." clause with positional
// placeholders. prefix qualifies column references ("d." when decisions is
// joined, "" when queried directly).
func buildFilterSQL(f Filters, prefix string) (string, []any) {
	var clauses []string
	var args []any

	inList := func(field string, vals []string) {
		if len(vals) == 0 {
			return
		}
		ph := strings.TrimSuffix(strings.Repeat("?,", len(vals)), ",")
		clauses = append(clauses, fmt.Sprintf("%s%s IN (%s)", prefix, field, ph))
		for _, v := range vals {
			args = append(args, v)
		}
	}
	inList("canton", f.Canton)
	inList("language", f.Language)
	inList("level", f.Level)
	inList("source_id", f.SourceID)

	if f.DateFrom != "" {
		clauses = append(clauses, prefix+"decision_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		clauses = append(clauses, prefix+"decision_date <= ?")
		args = append(args, f.DateTo)
	}
	if f.Docket != "" {
		clauses = append(clauses, prefix+"docket LIKE ?")
		args = append(args, f.Docket+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// Search runs one paged search. The query must already be validated and
// sanitized; the browse path is taken when it is empty.
func Search(ctx context.Context, db *sql.DB, req Request) (*Page, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	offset := (page - 1) * size

	q := strings.TrimSpace(req.Query)
	if q == "" {
		return browse(ctx, db, req.Filters, req.Sort, page, size, offset)
	}
	return fullText(ctx, db, q, req.Filters, req.Sort, page, size, offset)
}

func browse(ctx context.Context, db *sql.DB, f Filters, sort string, page, size, offset int) (*Page, error) {
	filterSQL, filterArgs := buildFilterSQL(f, "")
	where := "1=1" + filterSQL

	var total int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM decisions WHERE "+where, filterArgs...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("search: browse count: %w", err)
	}

	order := "decision_date DESC"
	if sort == "date_asc" {
		order = "decision_date ASC"
	}

	args := append(append([]any{}, filterArgs...), size, offset)
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, source_name, canton, level, language, docket,
		       decision_date, publication_date, title, url, pdf_url,
		       substr(content_text, 1, 300) AS snippet
		FROM decisions
		WHERE %s
		ORDER BY %s
		LIMIT ? OFFSET ?`, where, order), args...)
	if err != nil {
		return nil, fmt.Errorf("search: browse: %w", err)
	}
	hits, err := scanHits(rows, false)
	if err != nil {
		return nil, err
	}

	facets, err := browseFacets(ctx, db, where, filterArgs)
	if err != nil {
		return nil, err
	}

	return &Page{
		Query:    "",
		Page:     page,
		PageSize: size,
		Total:    total,
		Results:  hits,
		Facets:   facets,
	}, nil
}

func fullText(ctx context.Context, db *sql.DB, q string, f Filters, sort string, page, size, offset int) (*Page, error) {
	filterSQL, filterArgs := buildFilterSQL(f, "d.")
	cutoff := time.Now().AddDate(0, 0, -freshnessYears*365).Format("2006-01-02")
	qLower := strings.ToLower(q)

	var orderBy string
	switch sort {
	case "date_desc":
		orderBy = "d.decision_date DESC, final_rank ASC"
	case "date_asc":
		orderBy = "d.decision_date ASC, final_rank ASC"
	default:
		orderBy = "final_rank ASC, d.decision_date DESC"
	}

	// Two-stage plan: collect a capped hit set from the FTS index first,
	// then join, filter, and rank. Bonuses subtract because BM25 is
	// lower-is-better.
	pageSQL := fmt.Sprintf(`
		WITH hits AS (
		  SELECT rowid AS rid,
		         bm25(decisions_fts, 3.0, 2.0, 1.0) AS bm25_score
		  FROM decisions_fts
		  WHERE decisions_fts MATCH ?
		  LIMIT %d
		),
		filtered AS (
		  SELECT d.doc_id AS did, h.bm25_score,
		         CASE WHEN d.decision_date >= ? THEN %g ELSE 0 END AS freshness_boost,
		         CASE WHEN lower(d.title) LIKE '%%' || ? || '%%' THEN %g ELSE 0 END AS title_bonus,
		         CASE WHEN lower(d.docket) LIKE '%%' || ? || '%%' THEN %g ELSE 0 END AS docket_bonus
		  FROM hits h
		  JOIN decisions d ON d.doc_id = h.rid
		  WHERE 1=1%s
		),
		ranked AS (
		  SELECT did,
		         (bm25_score - freshness_boost - title_bonus - docket_bonus) AS final_rank
		  FROM filtered
		)
		SELECT d.id, d.source_name, d.canton, d.level, d.language, d.docket,
		       d.decision_date, d.publication_date, d.title, d.url, d.pdf_url,
		       snippet(decisions_fts, 2, '<mark>', '</mark>', '…', 24) AS snippet,
		       ranked.final_rank
		FROM ranked
		JOIN decisions_fts ON decisions_fts.rowid = ranked.did AND decisions_fts MATCH ?
		JOIN decisions d ON d.doc_id = ranked.did
		ORDER BY %s
		LIMIT ? OFFSET ?`,
		CountCap, freshnessWeight, titleMatchBonus, docketMatchBonus, filterSQL, orderBy)

	args := []any{q, cutoff, qLower, qLower}
	args = append(args, filterArgs...)
	args = append(args, q, size, offset)

	rows, err := db.QueryContext(ctx, pageSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	hits, err := scanHits(rows, true)
	if err != nil {
		return nil, err
	}

	countSQL := fmt.Sprintf(`
		WITH hits AS (
		  SELECT rowid AS rid
		  FROM decisions_fts
		  WHERE decisions_fts MATCH ?
		  LIMIT %d
		),
		filtered AS (
		  SELECT 1
		  FROM hits h
		  JOIN decisions d ON d.doc_id = h.rid
		  WHERE 1=1%s
		  LIMIT %d
		)
		SELECT COUNT(*) FROM filtered`, CountCap, filterSQL, CountCap+1)

	countArgs := append([]any{q}, filterArgs...)
	var total int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("search: count: %w", err)
	}
	capped := total >= CountCap
	if total > CountCap {
		total = CountCap
	}

	facets, err := fullTextFacets(ctx, db, q, filterSQL, filterArgs)
	if err != nil {
		return nil, err
	}

	return &Page{
		Query:       q,
		Page:        page,
		PageSize:    size,
		Total:       total,
		TotalCapped: capped,
		Results:     hits,
		Facets:      facets,
	}, nil
}

func scanHits(rows *sql.Rows, withRank bool) ([]Hit, error) {
	defer rows.Close()
	var hits []Hit
	for rows.Next() {
		var h Hit
		var canton, language, docket, dDate, pDate, pdfURL, snippet sql.NullString
		dest := []any{
			&h.ID, &h.SourceName, &canton, &h.Level, &language, &docket,
			&dDate, &pDate, &h.Title, &h.URL, &pdfURL, &snippet,
		}
		if withRank {
			dest = append(dest, &h.Rank)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("search: scan hit: %w", err)
		}
		h.Canton = canton.String
		h.Language = language.String
		h.Docket = docket.String
		h.DecisionDate = dDate.String
		h.PublicationDate = pDate.String
		h.PDFURL = pdfURL.String
		h.Snippet = snippet.String
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func browseFacets(ctx context.Context, db *sql.DB, where string, filterArgs []any) (Facets, error) {
	var f Facets
	var err error
	query := func(field string, limit int) []FacetCount {
		if err != nil {
			return nil
		}
		var out []FacetCount
		out, err = scanFacet(ctx, db, fmt.Sprintf(
			`SELECT %s AS value, COUNT(*) AS count FROM decisions WHERE %s
			 GROUP BY %s ORDER BY count DESC LIMIT %d`, field, where, field, limit), filterArgs)
		return out
	}
	f.Language = query("language", 20)
	f.Canton = query("canton", 30)
	f.SourceName = query("source_name", 30)
	return f, err
}

func fullTextFacets(ctx context.Context, db *sql.DB, q, filterSQL string, filterArgs []any) (Facets, error) {
	var f Facets
	var err error
	query := func(field string, limit int) []FacetCount {
		if err != nil {
			return nil
		}
		sqlText := fmt.Sprintf(`
			WITH hits AS (
			  SELECT rowid AS rid
			  FROM decisions_fts
			  WHERE decisions_fts MATCH ?
			  LIMIT %d
			),
			filtered AS (
			  SELECT d.%s AS value
			  FROM hits h
			  JOIN decisions d ON d.doc_id = h.rid
			  WHERE 1=1%s
			)
			SELECT value, COUNT(*) AS count
			FROM filtered
			GROUP BY value
			ORDER BY count DESC
			LIMIT %d`, FacetSampleLimit, field, filterSQL, limit)
		args := append([]any{q}, filterArgs...)
		var out []FacetCount
		out, err = scanFacet(ctx, db, sqlText, args)
		return out
	}
	f.Language = query("language", 20)
	f.Canton = query("canton", 30)
	f.SourceName = query("source_name", 30)
	return f, err
}

func scanFacet(ctx context.Context, db *sql.DB, sqlText string, args []any) ([]FacetCount, error) {
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("search: facet: %w", err)
	}
	defer rows.Close()
	var out []FacetCount
	for rows.Next() {
		var v sql.NullString
		var fc FacetCount
		if err := rows.Scan(&v, &fc.Count); err != nil {
			return nil, fmt.Errorf("search: scan facet: %w", err)
		}
		fc.Value = v.String
		out = append(out, fc)
	}
	return out, rows.Err()
}
