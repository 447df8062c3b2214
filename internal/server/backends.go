package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/guidify/internal/cache"
	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/llm"
	"github.com/joseph-ayodele/guidify/internal/llm/gemini"
	"github.com/joseph-ayodele/guidify/internal/llm/openai"
	"github.com/joseph-ayodele/guidify/internal/ocr"
	repo "github.com/joseph-ayodele/guidify/internal/repository"
)

// NewGenerator builds the configured generative backend. Without an API key
// it returns nil and the gateway answers every call with its fallback.
func NewGenerator(c common.LLMConfig, logger *slog.Logger) llm.Generator {
	if c.APIKey == "" {
		logger.Warn("llm.backend.disabled", "provider", c.Provider, "reason", "no api key")
		return nil
	}
	switch c.Provider {
	case "groq":
		return openai.NewClient(openai.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: c.Temperature,
			Timeout:     c.Timeout.Duration,
			JSONMode:    true,
		}, logger)
	default:
		return gemini.NewClient(gemini.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: c.Temperature,
			Timeout:     c.Timeout.Duration,
		}, logger)
	}
}

// DefaultModel is the model used when a call names none.
func DefaultModel(c common.LLMConfig) string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == "groq" {
		return openai.DefaultModel
	}
	return gemini.DefaultModel
}

// NewCacheStore returns the recommendation cache store for the configured
// backend. The returned close func is never nil.
func NewCacheStore(ctx context.Context, c common.CacheConfig, db *repo.DB, logger *slog.Logger) (cache.Store, func(), error) {
	if c.Backend != "redis" {
		return repo.NewRecommendationRepository(db, logger), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	store := cache.NewRedisStore(client, "")
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, func() {}, fmt.Errorf("redis ping %s: %w", c.RedisAddr, err)
	}
	logger.Info("cache.redis.connected", "addr", c.RedisAddr)
	return store, func() {
		if err := client.Close(); err != nil {
			logger.Warn("cache.redis.close_failed", "error", err)
		}
	}, nil
}

// NewTextExtractor maps the OCR settings onto the document text extractor.
func NewTextExtractor(c common.OCRConfig, logger *slog.Logger) *ocr.Extractor {
	return ocr.NewExtractor(ocr.Config{
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.Lang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		Timeout:       c.Timeout.Duration,
	}, logger)
}
