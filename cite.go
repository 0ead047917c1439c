// CLAUDE:SUMMARY Citation formatting for decisions: standard Swiss, BibTeX, APA.
package caselaw

import (
	"context"
	"fmt"
	"strings"
)

// Citation is a formatted reference for one decision.
type Citation struct {
	Citation string `json:"citation"`
	Format   string `json:"format"`
}

// Cite formats a citation for the decision. Supported formats are
// "standard" (Swiss legal style), "bibtex", and "apa"; anything else
// falls back to standard.
func (s *Service) Cite(ctx context.Context, id, format string) (*Citation, error) {
	doc, err := s.GetDoc(ctx, id)
	if err != nil {
		return nil, err
	}

	court := doc.Court
	if court == "" {
		court = doc.SourceName
	}
	year := ""
	if len(doc.DecisionDate) >= 4 {
		year = doc.DecisionDate[:4]
	}

	var out string
	switch format {
	case "bibtex":
		key := doc.Docket
		if key == "" && len(doc.ID) >= 8 {
			key = doc.ID[:8]
		}
		key = strings.NewReplacer("/", "_", " ", "_").Replace(key)
		out = fmt.Sprintf("@misc{%s,\n  title = {%s},\n  author = {%s},\n  year = {%s},\n  howpublished = {\\url{%s}},\n  note = {%s}\n}",
			key, doc.Title, court, year, doc.URL, doc.Docket)
	case "apa":
		if year == "" {
			year = "n.d."
		}
		out = fmt.Sprintf("%s (%s). %s. %s. %s", court, year, doc.Title, doc.Docket, doc.URL)
	default:
		format = "standard"
		if doc.Docket != "" {
			out = fmt.Sprintf("%s, %s, %s", court, doc.Docket, doc.DecisionDate)
		} else {
			title := doc.Title
			if r := []rune(title); len(r) > 50 {
				title = string(r[:50]) + "…"
			}
			out = fmt.Sprintf("%s, %s: %s", court, doc.DecisionDate, title)
		}
	}
	return &Citation{Citation: out, Format: format}, nil
}
