package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/extract"
	"github.com/joseph-ayodele/guidify/internal/ocr"
	"github.com/joseph-ayodele/guidify/internal/pipeline"
	"github.com/joseph-ayodele/guidify/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file>")
		os.Exit(2)
	}
	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	cfg, err := common.LoadConfig(os.Getenv("GUIDIFY_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	p := pipeline.NewProcessor(logger, server.NewTextExtractor(cfg.OCR, logger), extract.New(), nil)
	doc := ocr.RawDocument{Name: filepath.Base(path), Data: data}

	start := time.Now()
	res, err := p.Resume(ctx, doc)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	marks := extract.New().ExtractMarks(res.Text.Text)

	logger.Info("text extraction OK",
		"format", res.Text.Format,
		"provenance", res.Text.Provenance,
		"chars", len(res.Text.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"text":     res.Text.Text,
		"warnings": res.Text.Warnings,
		"marks":    marks,
		"profile":  res.Profile,
	})
}
