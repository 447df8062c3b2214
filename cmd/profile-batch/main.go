package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/export"
	"github.com/joseph-ayodele/guidify/internal/extract"
	"github.com/joseph-ayodele/guidify/internal/ingest"
	"github.com/joseph-ayodele/guidify/internal/ocr"
	"github.com/joseph-ayodele/guidify/internal/pipeline"
	"github.com/joseph-ayodele/guidify/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir    = flag.String("dir", "", "directory of marksheets and resumes (required)")
		out    = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		exts   = flag.String("exts", "", "comma-separated extensions to include (default: every supported format)")
		hidden = flag.Bool("hidden", false, "include hidden files and directories")
		watch  = flag.Bool("watch", false, "keep running and rewrite the workbook as documents arrive")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "profiles.xlsx")
	}
	var include []string
	for _, e := range strings.Split(*exts, ",") {
		if e = strings.TrimSpace(e); e != "" {
			include = append(include, e)
		}
	}

	cfg, err := common.LoadConfig(os.Getenv("GUIDIFY_CONFIG"))
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: common.ParseLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.NewProcessor(logger, server.NewTextExtractor(cfg.OCR, logger), extract.New(), nil)

	logger.Info("starting scan", "dir", *dir)
	paths, failed, stats, err := ingest.ScanDirectory(*dir, ingest.ScanOptions{Exts: include, SkipHidden: !*hidden})
	if err != nil {
		logger.Error("failed to scan directory", "error", err)
		os.Exit(1)
	}
	logger.Info("scan complete", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

	rows := make([]export.ProfileRow, 0, len(paths)+len(failed))
	for _, f := range failed {
		rows = append(rows, export.ProfileRow{Path: f.Path, Err: errors.New(f.Err)})
	}
	failures := len(failed)
	for _, path := range paths {
		row := profileFile(ctx, p, path)
		if row.Err != nil {
			failures++
		}
		rows = append(rows, row)
	}
	if err := writeWorkbook(*out, rows); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_processed", len(paths),
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files processed: %d\n", len(paths))
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)

	if !*watch {
		return
	}

	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:    []string{*dir},
		Exts:     include,
		Debounce: 500 * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		index[r.Path] = i
	}
	for {
		select {
		case path, ok := <-events:
			if !ok {
				return
			}
			row := profileFile(ctx, p, path)
			if i, seen := index[path]; seen {
				rows[i] = row
			} else {
				index[path] = len(rows)
				rows = append(rows, row)
			}
			if err := writeWorkbook(*out, rows); err != nil {
				logger.Error("failed to write output file", "error", err)
				continue
			}
			logger.Info("workbook updated", "path", path, "rows", len(rows))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

// profileFile runs both extraction stages on one document. Failures are
// recorded on the row rather than aborting the batch.
func profileFile(ctx context.Context, p *pipeline.Processor, path string) export.ProfileRow {
	row := export.ProfileRow{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		row.Err = err
		return row
	}
	res, err := p.Resume(ctx, ocr.RawDocument{Name: filepath.Base(path), Data: data})
	row.Format = res.Text.Format
	row.Provenance = string(res.Text.Provenance)
	if err != nil {
		row.Err = err
		return row
	}
	marks := extract.New().ExtractMarks(res.Text.Text)
	row.Marks = &marks
	row.CGPA = res.Profile.CGPA
	row.Skills = res.Profile.Skills
	return row
}

func writeWorkbook(path string, rows []export.ProfileRow) error {
	data, err := export.ProfilesXLSX(rows)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
