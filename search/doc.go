// CLAUDE:SUMMARY Single-document fetch, prefix suggestions, and flat export queries.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hazyhaar/caselaw/store"
)

// GetDoc fetches one decision with its full text. Returns ErrNotFound for
// an unknown id.
func GetDoc(ctx context.Context, db *sql.DB, id string) (*store.Record, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, source_id, source_name, level, canton, court, chamber,
		       language, docket, decision_date, publication_date, title,
		       url, pdf_url, content_text, content_sha256, fetched_at, updated_at
		FROM decisions
		WHERE id = ?
		LIMIT 1`, id)

	var r store.Record
	var canton, court, chamber, language, docket sql.NullString
	var dDate, pDate, pdfURL, sha, fetched, updated sql.NullString
	err := row.Scan(
		&r.ID, &r.SourceID, &r.SourceName, &r.Level, &canton, &court, &chamber,
		&language, &docket, &dDate, &pDate, &r.Title,
		&r.URL, &pdfURL, &r.ContentText, &sha, &fetched, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("search: get doc %s: %w", id, err)
	}
	r.Canton = canton.String
	r.Court = court.String
	r.Chamber = chamber.String
	r.Language = language.String
	r.Docket = docket.String
	r.DecisionDate = dDate.String
	r.PublicationDate = pDate.String
	r.PDFURL = pdfURL.String
	r.ContentSHA256 = sha.String
	r.FetchedAt = fetched.String
	r.UpdatedAt = updated.String
	return &r, nil
}

// Suggestion is one prefix-completion candidate.
type Suggestion struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Docket       string `json:"docket,omitempty"`
	SourceName   string `json:"source_name"`
	DecisionDate string `json:"decision_date,omitempty"`
}

// SuggestPrefix completes a typed prefix against the FTS index, e.g.
// "6B_12" or "steuer". Returns the top matches by BM25.
func SuggestPrefix(ctx context.Context, db *sql.DB, prefix string, limit int) ([]Suggestion, error) {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 8
	}

	rows, err := db.QueryContext(ctx, `
		SELECT d.id, d.title, d.docket, d.source_name, d.decision_date
		FROM decisions_fts
		JOIN decisions d ON d.doc_id = decisions_fts.rowid
		WHERE decisions_fts MATCH ?
		ORDER BY bm25(decisions_fts) ASC
		LIMIT ?`, p+"*", limit)
	if err != nil {
		return nil, fmt.Errorf("search: suggest %q: %w", p, err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		var s Suggestion
		var docket, dDate sql.NullString
		if err := rows.Scan(&s.ID, &s.Title, &docket, &s.SourceName, &dDate); err != nil {
			return nil, fmt.Errorf("search: scan suggestion: %w", err)
		}
		s.Docket = docket.String
		s.DecisionDate = dDate.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExportRow is one flat row for CSV export, without full text.
type ExportRow struct {
	ID           string `json:"id"`
	Docket       string `json:"docket,omitempty"`
	Title        string `json:"title"`
	DecisionDate string `json:"decision_date,omitempty"`
	Court        string `json:"court,omitempty"`
	Canton       string `json:"canton,omitempty"`
	Language     string `json:"language,omitempty"`
	Level        string `json:"level"`
	SourceName   string `json:"source_name"`
	URL          string `json:"url"`
	PDFURL       string `json:"pdf_url,omitempty"`
}

// Export returns up to maxResults matching rows without pagination, in
// relevance order for a full-text query and date order for browse.
// maxResults defaults to 1000 and is clamped to MaxExportRows, so no
// caller can dump the whole corpus through this path.
func Export(ctx context.Context, db *sql.DB, q string, f Filters, maxResults int) ([]ExportRow, error) {
	if maxResults <= 0 {
		maxResults = 1000
	}
	if maxResults > MaxExportRows {
		maxResults = MaxExportRows
	}
	q = strings.TrimSpace(q)

	var rows *sql.Rows
	var err error
	if q == "" {
		filterSQL, filterArgs := buildFilterSQL(f, "")
		args := append(append([]any{}, filterArgs...), maxResults)
		rows, err = db.QueryContext(ctx, fmt.Sprintf(`
			SELECT id, docket, title, decision_date, court, canton,
			       language, level, source_name, url, pdf_url
			FROM decisions
			WHERE 1=1%s
			ORDER BY decision_date DESC
			LIMIT ?`, filterSQL), args...)
	} else {
		filterSQL, filterArgs := buildFilterSQL(f, "d.")
		args := append([]any{q}, filterArgs...)
		args = append(args, maxResults)
		rows, err = db.QueryContext(ctx, fmt.Sprintf(`
			WITH hits AS (
			  SELECT rowid AS rid, bm25(decisions_fts, 3.0, 2.0, 1.0) AS score
			  FROM decisions_fts
			  WHERE decisions_fts MATCH ?
			  LIMIT %d
			),
			filtered AS (
			  SELECT d.id, d.docket, d.title, d.decision_date, d.court, d.canton,
			         d.language, d.level, d.source_name, d.url, d.pdf_url, h.score
			  FROM hits h
			  JOIN decisions d ON d.doc_id = h.rid
			  WHERE 1=1%s
			)
			SELECT id, docket, title, decision_date, court, canton,
			       language, level, source_name, url, pdf_url
			FROM filtered
			ORDER BY score ASC
			LIMIT ?`, maxResults*2, filterSQL), args...)
	}
	if err != nil {
		return nil, fmt.Errorf("search: export: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		var docket, dDate, court, canton, language, pdfURL sql.NullString
		if err := rows.Scan(&r.ID, &docket, &r.Title, &dDate, &court, &canton,
			&language, &r.Level, &r.SourceName, &r.URL, &pdfURL); err != nil {
			return nil, fmt.Errorf("search: scan export row: %w", err)
		}
		r.Docket = docket.String
		r.DecisionDate = dDate.String
		r.Court = court.String
		r.Canton = canton.String
		r.Language = language.String
		r.PDFURL = pdfURL.String
		out = append(out, r)
	}
	return out, rows.Err()
}
