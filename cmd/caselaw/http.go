// CLAUDE:SUMMARY HTTP JSON API over chi: search, doc, suggest, export, stats, update, health.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/caselaw"
	"github.com/hazyhaar/caselaw/idgen"
	"github.com/hazyhaar/caselaw/kit"
	"github.com/hazyhaar/caselaw/search"
)

func serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cfg, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()
			if listen == "" {
				listen = cfg.Listen
			}

			ctx, cancel := signalContext()
			defer cancel()

			srv := &http.Server{
				Addr:              listen,
				Handler:           router(svc),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				srv.Shutdown(shutdownCtx)
			}()

			slog.Info("http listening", "addr", listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

// requestID tags every request with an id for log correlation.
var newRequestID = idgen.Prefixed("req_", idgen.Default)

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := newRequestID()
		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), reqID)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		slog.Debug("http request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func router(svc *caselaw.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]bool{"ok": true})
	})

	r.Post("/api/search", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Q        string         `json:"q"`
			Filters  search.Filters `json:"filters"`
			Page     int            `json:"page"`
			PageSize int            `json:"page_size"`
			Sort     string         `json:"sort"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		resp, err := svc.Search(r.Context(), search.Request{
			Query:    req.Q,
			Filters:  req.Filters,
			Page:     req.Page,
			PageSize: req.PageSize,
			Sort:     req.Sort,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, resp)
	})

	r.Get("/api/doc/{id}", func(w http.ResponseWriter, r *http.Request) {
		doc, err := svc.GetDoc(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, doc)
	})

	r.Get("/api/suggest", func(w http.ResponseWriter, r *http.Request) {
		limit := 8
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		items, err := svc.SuggestPrefix(r.Context(), r.URL.Query().Get("q"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"items": items})
	})

	r.Get("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, svc.Status())
	})

	r.Post("/api/update", func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Update(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, res)
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, st)
	})

	r.Post("/api/export/csv", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Q          string         `json:"q"`
			Filters    search.Filters `json:"filters"`
			MaxResults int            `json:"max_results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		rows, err := svc.Export(r.Context(), req.Q, req.Filters, req.MaxResults)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=swiss_caselaw_export.csv")
		cw := csv.NewWriter(w)
		cw.Write([]string{"id", "docket", "title", "decision_date", "court", "canton",
			"language", "level", "source_name", "url", "pdf_url"})
		for _, row := range rows {
			cw.Write([]string{row.ID, row.Docket, row.Title, row.DecisionDate, row.Court,
				row.Canton, row.Language, row.Level, row.SourceName, row.URL, row.PDFURL})
		}
		cw.Flush()
	})

	r.Post("/api/cite", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string `json:"id"`
			Format string `json:"format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		c, err := svc.Cite(r.Context(), req.ID, req.Format)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, 200, c)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeServiceError maps service sentinels onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, caselaw.ErrNotInstalled):
		writeError(w, 503, err)
	case errors.Is(err, search.ErrNotFound):
		writeError(w, 404, err)
	case errors.Is(err, caselaw.ErrInvalidQuery):
		writeError(w, 400, err)
	default:
		writeError(w, 500, err)
	}
}
