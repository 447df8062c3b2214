package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes an external tool and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner shells out to pdftoppm and tesseract.
type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{"tool", name, "elapsed_ms", time.Since(start).Milliseconds()}

	switch {
	case errors.Is(err, exec.ErrNotFound):
		r.logger.Error("ocr.exec.missing_tool", append(attrs, "error", err)...)
	case err != nil && ctx.Err() != nil:
		r.logger.Warn("ocr.exec.timeout", append(attrs, "error", ctx.Err())...)
	case err != nil:
		r.logger.Error("ocr.exec.failed", append(attrs,
			"args", strings.Join(args, " "),
			"error", err,
			"stderr", truncate(stderr.String(), 4<<10),
		)...)
	default:
		r.logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
