// CLAUDE:SUMMARY Entry point for the caselaw CLI — update, search, get, stats, status, serve, mcp.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/caselaw"
	"github.com/hazyhaar/caselaw/search"
)

var (
	flagConfig   string
	flagDataDir  string
	flagManifest string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "caselaw",
		Short:         "Local-first search over Swiss court decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "override data directory")
	root.PersistentFlags().StringVar(&flagManifest, "manifest-url", "", "override manifest URL")

	root.AddCommand(updateCmd(), searchCmd(), getCmd(), statsCmd(), statusCmd(), serveCmd(), mcpCmd())
	return root
}

// newService builds the service from config file, env, and flags, with
// flags winning.
func newService() (*caselaw.Service, *caselaw.Config, error) {
	cfg, err := caselaw.LoadConfig(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagManifest != "" {
		cfg.ManifestURL = flagManifest
	}

	lvl := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	svc, err := caselaw.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Pull the remote manifest and install new artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := signalContext()
			defer cancel()

			res, err := svc.Update(ctx)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		language []string
		canton   []string
		level    []string
		dateFrom string
		dateTo   string
		docket   string
		page     int
		pageSize int
		sort     string
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search decisions; empty query browses by date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			q := ""
			if len(args) == 1 {
				q = args[0]
			}

			ctx, cancel := signalContext()
			defer cancel()

			resp, err := svc.Search(ctx, search.Request{
				Query: q,
				Filters: search.Filters{
					Language: language,
					Canton:   canton,
					Level:    level,
					DateFrom: dateFrom,
					DateTo:   dateTo,
					Docket:   docket,
				},
				Page:     page,
				PageSize: pageSize,
				Sort:     sort,
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().StringSliceVar(&language, "language", nil, "language filter (de, fr, it)")
	cmd.Flags().StringSliceVar(&canton, "canton", nil, "canton filter (ZH, BE, ...)")
	cmd.Flags().StringSliceVar(&level, "level", nil, "court level (federal, cantonal)")
	cmd.Flags().StringVar(&dateFrom, "from", "", "earliest decision date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateTo, "to", "", "latest decision date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&docket, "docket", "", "docket number prefix")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "results per page (max 100)")
	cmd.Flags().StringVar(&sort, "sort", "relevance", "relevance, date_desc, or date_asc")
	return cmd
}

func getCmd() *cobra.Command {
	var cite string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one decision by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := signalContext()
			defer cancel()

			if cite != "" {
				c, err := svc.Cite(ctx, args[0], cite)
				if err != nil {
					return err
				}
				fmt.Println(c.Citation)
				return nil
			}
			doc, err := svc.GetDoc(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(doc)
		},
	}
	cmd.Flags().StringVar(&cite, "cite", "", "print a citation instead: standard, bibtex, apa")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Corpus statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := signalContext()
			defer cancel()

			st, err := svc.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(st)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Local install state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()
			return printJSON(svc.Status())
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			srv := mcp.NewServer(&mcp.Implementation{
				Name:    "caselaw",
				Version: "1.0.0",
			}, nil)
			svc.RegisterMCP(srv)

			ctx, cancel := signalContext()
			defer cancel()
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
