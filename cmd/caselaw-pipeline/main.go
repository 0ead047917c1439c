// CLAUDE:SUMMARY Entry point for the artifact pipeline — build deltas/snapshots and maintain manifest.json.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/caselaw/manifest"
	"github.com/hazyhaar/caselaw/pipeline"
)

var flagArtifacts string

const (
	snapshotDir = "snapshots"
	deltaDir    = "deltas"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "caselaw-pipeline",
		Short:         "Build and register caselaw distribution artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagArtifacts, "artifacts", "artifacts", "local artifacts directory")
	root.AddCommand(initCmd(), convertCmd(), buildDeltaCmd(), buildSnapshotCmd(), setSnapshotCmd(), addDeltaCmd())
	return root
}

func manifestPath() string { return filepath.Join(flagArtifacts, "manifest.json") }

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the artifacts directory with an empty manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, dir := range []string{flagArtifacts, filepath.Join(flagArtifacts, snapshotDir), filepath.Join(flagArtifacts, deltaDir)} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if _, err := os.Stat(manifestPath()); err == nil {
				return fmt.Errorf("manifest already exists at %s", manifestPath())
			}
			m := manifest.New()
			if err := m.Save(manifestPath()); err != nil {
				return err
			}
			slog.Info("artifacts initialized", "dir", flagArtifacts)
			return nil
		},
	}
}

func buildDeltaCmd() *cobra.Command {
	var (
		date     string
		register bool
	)
	cmd := &cobra.Command{
		Use:   "build-delta <export.jsonl[.gz]>",
		Short: "Build a dated delta artifact from a JSONL export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = time.Now().UTC().Format("2006-01-02")
			}
			outDir := filepath.Join(flagArtifacts, deltaDir)
			res, err := pipeline.BuildDelta(cmd.Context(), args[0], outDir, date)
			if err != nil {
				return err
			}
			slog.Info("delta built", "date", date, "rows", res.Rows, "artifact", res.ZstPath)

			if register {
				if err := registerDelta(res.ZstPath, date); err != nil {
					return err
				}
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "delta date (default today, UTC)")
	cmd.Flags().BoolVar(&register, "register", false, "also add the delta to manifest.json")
	return cmd
}

func buildSnapshotCmd() *cobra.Command {
	var (
		week     string
		register bool
	)
	cmd := &cobra.Command{
		Use:   "build-snapshot <export.jsonl[.gz]>",
		Short: "Build a weekly snapshot artifact from a JSONL export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if week == "" {
				week = manifest.ISOWeek(time.Now().UTC())
			}
			outDir := filepath.Join(flagArtifacts, snapshotDir)
			res, err := pipeline.BuildSnapshot(cmd.Context(), args[0], outDir, week)
			if err != nil {
				return err
			}
			slog.Info("snapshot built", "week", week, "rows", res.Rows, "artifact", res.ZstPath)

			if register {
				if err := registerSnapshot(res.ZstPath, week); err != nil {
					return err
				}
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "ISO week label, e.g. 2026-W35 (default current week)")
	cmd.Flags().BoolVar(&register, "register", false, "also set the snapshot in manifest.json")
	return cmd
}

func setSnapshotCmd() *cobra.Command {
	var week string
	cmd := &cobra.Command{
		Use:   "set-snapshot <artifact.sqlite.zst>",
		Short: "Point the manifest at a snapshot artifact (resets deltas)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if week == "" {
				return fmt.Errorf("--week is required")
			}
			return registerSnapshot(args[0], week)
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "ISO week label the artifact covers")
	return cmd
}

func addDeltaCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "add-delta <artifact.sqlite.zst>",
		Short: "Register a delta artifact in the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				return fmt.Errorf("--date is required")
			}
			return registerDelta(args[0], date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "delta date (YYYY-MM-DD)")
	return cmd
}

// pathInRepo rebases an artifact path onto the artifacts dir so manifest
// entries stay relative to the manifest's own location.
func pathInRepo(artifact string) (string, error) {
	abs, err := filepath.Abs(artifact)
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(flagArtifacts)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == "." || rel[0] == '.' {
		return filepath.Base(artifact), nil
	}
	return filepath.ToSlash(rel), nil
}

func registerSnapshot(artifact, week string) error {
	rel, err := pathInRepo(artifact)
	if err != nil {
		return err
	}
	ref, err := pipeline.FileMeta(artifact, rel)
	if err != nil {
		return err
	}
	m, err := manifest.LoadFile(manifestPath())
	if err != nil {
		return err
	}
	m.SetSnapshot(week, ref)
	if err := m.Save(manifestPath()); err != nil {
		return err
	}
	slog.Info("manifest snapshot set", "week", week, "path", ref.Path)
	return nil
}

func registerDelta(artifact, date string) error {
	rel, err := pathInRepo(artifact)
	if err != nil {
		return err
	}
	ref, err := pipeline.FileMeta(artifact, rel)
	if err != nil {
		return err
	}
	m, err := manifest.LoadFile(manifestPath())
	if err != nil {
		return err
	}
	if m.Snapshot == nil {
		return fmt.Errorf("manifest has no snapshot; publish one before deltas")
	}
	m.AddDelta(date, ref)
	if err := m.Save(manifestPath()); err != nil {
		return err
	}
	slog.Info("manifest delta added", "date", date, "path", ref.Path)
	return nil
}
