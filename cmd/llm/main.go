package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/llm"
	"github.com/joseph-ayodele/guidify/internal/server"
)

func main() {
	var (
		prompt   = flag.String("prompt", "", "prompt text (required)")
		system   = flag.String("system", "", "system instruction")
		model    = flag.String("model", "", "model override")
		required = flag.String("require", "", "comma-separated keys the answer must carry")
		stream   = flag.Bool("stream", false, "print raw chunks as they arrive")
		times    = flag.Int("times", 1, "number of invocations")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if strings.TrimSpace(*prompt) == "" {
		logger.Error("usage: llm -prompt <text> [-require k1,k2] [-stream]")
		os.Exit(2)
	}
	cfg, err := common.LoadConfig(os.Getenv("GUIDIFY_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}
	gen := server.NewGenerator(cfg.LLM, logger)
	if gen == nil {
		logger.Error("no API key configured", "provider", cfg.LLM.Provider)
		os.Exit(2)
	}
	gw := llm.NewGateway(gen, logger,
		llm.WithTimeout(cfg.LLM.Timeout.Duration),
		llm.WithDefaultModel(server.DefaultModel(cfg.LLM)),
	)

	req := llm.Request{
		Name:              "cli",
		Prompt:            *prompt,
		SystemInstruction: *system,
		Model:             *model,
		RequiredKeys:      splitKeys(*required),
	}

	if *stream {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		err := gw.Stream(ctx, req, func(chunk string) error {
			_, err := fmt.Print(chunk)
			return err
		})
		fmt.Println()
		if err != nil {
			logger.Error("llm.stream.error", "error", err)
			os.Exit(1)
		}
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i := 1; i <= *times; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		out := gw.Invoke(ctx, req, func() map[string]any { return map[string]any{} })
		cancel()
		logger.Info("llm.run.done",
			"iter", i,
			"fallback", out.Fallback,
			"reason", out.Reason,
			"strategy", out.Strategy,
			"elapsed_ms", out.Elapsed.Milliseconds(),
		)
		_ = enc.Encode(out.Payload)
	}
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
