// CLAUDE:SUMMARY Decision record type and the canonical column list shared by snapshot and delta layouts.
// Package store owns the embedded schema for Swiss court decisions: the
// decisions table, its FTS5 index, and every write path that mutates them.
// All mutations go through the decisions table, whose triggers keep the FTS
// index consistent inside the same transaction; there is no raw index-write
// entry point.
package store

import "strings"

// Columns is the canonical decision column list, excluding the internal
// doc_id used as the FTS rowid. Order matters: insert statements and scans
// are generated from it.
var Columns = []string{
	"id",
	"source_id",
	"source_name",
	"level",
	"canton",
	"court",
	"chamber",
	"language",
	"docket",
	"decision_date",
	"publication_date",
	"title",
	"url",
	"pdf_url",
	"content_text",
	"content_sha256",
	"fetched_at",
	"updated_at",
}

// Record is one court decision. Empty strings are stored as NULL for the
// nullable columns (canton, language, docket, dates, pdf_url).
type Record struct {
	ID              string `json:"id"`
	SourceID        string `json:"source_id"`
	SourceName      string `json:"source_name"`
	Level           string `json:"level"` // federal | cantonal
	Canton          string `json:"canton,omitempty"`
	Court           string `json:"court,omitempty"`
	Chamber         string `json:"chamber,omitempty"`
	Language        string `json:"language,omitempty"`
	Docket          string `json:"docket,omitempty"`
	DecisionDate    string `json:"decision_date,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	PDFURL          string `json:"pdf_url,omitempty"`
	ContentText     string `json:"content_text"`
	ContentSHA256   string `json:"content_sha256"`
	FetchedAt       string `json:"fetched_at"`
	UpdatedAt       string `json:"updated_at"`
}

// args returns the record's values in Columns order, mapping "" to NULL.
func (r *Record) args() []any {
	vals := []string{
		r.ID, r.SourceID, r.SourceName, r.Level, r.Canton, r.Court,
		r.Chamber, r.Language, r.Docket, r.DecisionDate, r.PublicationDate,
		r.Title, r.URL, r.PDFURL, r.ContentText, r.ContentSHA256,
		r.FetchedAt, r.UpdatedAt,
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		if v == "" {
			out[i] = nil
		} else {
			out[i] = v
		}
	}
	return out
}

func columnList() string { return strings.Join(Columns, ", ") }

func placeholders() string {
	return strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", ")
}

// upsertSetClause lists every non-key column for the delta merge: on an id
// conflict the delta's value always wins.
func upsertSetClause() string {
	var b strings.Builder
	for _, c := range Columns {
		if c == "id" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteString(" = excluded.")
		b.WriteString(c)
	}
	return b.String()
}
