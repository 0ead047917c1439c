// CLAUDE:SUMMARY Convert a raw HTML/PDF decision file into a JSONL export record.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/caselaw/pipeline"
	"github.com/hazyhaar/caselaw/pipeline/ingest"
	"github.com/hazyhaar/caselaw/store"
)

// convertCmd turns one scraped decision file into a normalized export
// record, appended to a JSONL file that build-delta/build-snapshot can
// consume. Metadata the document itself cannot carry comes from flags.
func convertCmd() *cobra.Command {
	var (
		rec store.Record
		out string
	)
	cmd := &cobra.Command{
		Use:   "convert <decision.html|decision.pdf>",
		Short: "Convert a raw decision document into an export record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			var (
				title   string
				content string
				err     error
			)
			switch strings.ToLower(filepath.Ext(src)) {
			case ".html", ".htm":
				raw, rerr := os.ReadFile(src)
				if rerr != nil {
					return rerr
				}
				title, content, err = ingest.NewHTML().Convert(raw, rec.URL)
			case ".pdf":
				title, content, err = ingest.PDF(src)
			default:
				return fmt.Errorf("unsupported source type %q (want .html or .pdf)", filepath.Ext(src))
			}
			if err != nil {
				return fmt.Errorf("convert %s: %w", src, err)
			}
			if rec.Title == "" {
				rec.Title = title
			}
			rec.ContentText = content

			r := pipeline.Normalize(pipeline.RawDecision{Record: rec})

			w := os.Stdout
			if out != "" {
				f, oerr := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
				if oerr != nil {
					return oerr
				}
				defer f.Close()
				w = f
			}
			if err := json.NewEncoder(w).Encode(r); err != nil {
				return err
			}
			if out != "" {
				slog.Info("record appended", "id", r.ID, "title", r.Title, "out", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "JSONL export file to append to (default stdout)")
	cmd.Flags().StringVar(&rec.ID, "id", "", "record id (default derived from source id and URL)")
	cmd.Flags().StringVar(&rec.SourceID, "source-id", "", "connector-scoped source id")
	cmd.Flags().StringVar(&rec.SourceName, "source-name", "", "publishing court or collection name")
	cmd.Flags().StringVar(&rec.Level, "level", "", "federal or cantonal")
	cmd.Flags().StringVar(&rec.Canton, "canton", "", "canton code, e.g. ZH")
	cmd.Flags().StringVar(&rec.Court, "court", "", "deciding court")
	cmd.Flags().StringVar(&rec.Chamber, "chamber", "", "chamber or division")
	cmd.Flags().StringVar(&rec.Language, "language", "", "decision language (de/fr/it/rm/en)")
	cmd.Flags().StringVar(&rec.Docket, "docket", "", "docket number")
	cmd.Flags().StringVar(&rec.DecisionDate, "decision-date", "", "decision date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&rec.URL, "url", "", "canonical decision URL")
	cmd.Flags().StringVar(&rec.PDFURL, "pdf-url", "", "PDF URL if distinct from the page")
	cmd.Flags().StringVar(&rec.Title, "title", "", "override the extracted title")
	return cmd
}
