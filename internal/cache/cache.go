// Package cache stores generated recommendations per user so repeated
// queries with the same parameters skip the generative backend.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/guidify/constants"
	"github.com/joseph-ayodele/guidify/internal/metrics"
)

// Store persists cache entries. Entries never expire; for a given
// (userID, signature) the most recent Save wins.
type Store interface {
	Latest(ctx context.Context, userID, signature string) (map[string]any, bool, error)
	Save(ctx context.Context, userID, signature string, payload map[string]any) error
}

// Outcome reports what Put did. Err is set only when the store failed.
type Outcome struct {
	Stored  bool
	Skipped bool
	Err     error
}

type RecommendationCache struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, logger *slog.Logger, m *metrics.Metrics) *RecommendationCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendationCache{store: store, logger: logger, metrics: m}
}

// Get returns a cached payload. Anonymous callers always miss, and a store
// failure is reported as a miss.
func (c *RecommendationCache) Get(ctx context.Context, userID, signature string) (map[string]any, bool) {
	if c == nil || c.store == nil || userID == "" {
		c.count("get", "skip")
		return nil, false
	}
	payload, ok, err := c.store.Latest(ctx, userID, signature)
	if err != nil {
		c.count("get", "error")
		c.logger.Warn("cache.get.error", "user_id", userID, "signature", signature, "error", err)
		return nil, false
	}
	if !ok || payload == nil {
		c.count("get", "miss")
		c.logger.Debug("cache.get.miss", "user_id", userID, "signature", signature)
		return nil, false
	}
	c.count("get", "hit")
	c.logger.Info("cache.get.hit", "user_id", userID, "signature", signature)
	return payload, true
}

// Put writes payload back. Callers only write non-fallback results.
func (c *RecommendationCache) Put(ctx context.Context, userID, signature string, payload map[string]any) Outcome {
	if c == nil || c.store == nil || userID == "" || payload == nil {
		c.count("put", "skip")
		return Outcome{Skipped: true}
	}
	if err := c.store.Save(ctx, userID, signature, payload); err != nil {
		c.count("put", "error")
		c.logger.Error("cache.put.error", "user_id", userID, "signature", signature, "error", err)
		return Outcome{Err: err}
	}
	c.count("put", "ok")
	c.logger.Debug("cache.put.ok", "user_id", userID, "signature", signature)
	return Outcome{Stored: true}
}

func (c *RecommendationCache) count(op, result string) {
	if c != nil {
		c.metrics.Cache(op, result)
	}
}

// Signature joins a query kind and its parameters with underscores.
func Signature(kind string, params ...any) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, kind)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, "_")
}

// CollegeSignature keys college lists by canonical stream and raw marks.
func CollegeSignature(stream string, marks int) string {
	s, _ := constants.CanonicalStream(stream)
	return Signature("college_list", s, marks)
}
