package server

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/llm/gemini"
	"github.com/joseph-ayodele/guidify/internal/llm/openai"
	repo "github.com/joseph-ayodele/guidify/internal/repository"
)

func TestNewGenerator(t *testing.T) {
	logger := slog.Default()

	assert.Nil(t, NewGenerator(common.LLMConfig{Provider: "gemini"}, logger))

	_, ok := NewGenerator(common.LLMConfig{Provider: "gemini", APIKey: "k"}, logger).(*gemini.Client)
	assert.True(t, ok)
	_, ok = NewGenerator(common.LLMConfig{Provider: "groq", APIKey: "k"}, logger).(*openai.Client)
	assert.True(t, ok)
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, gemini.DefaultModel, DefaultModel(common.LLMConfig{Provider: "gemini"}))
	assert.Equal(t, openai.DefaultModel, DefaultModel(common.LLMConfig{Provider: "groq"}))
	assert.Equal(t, "custom", DefaultModel(common.LLMConfig{Provider: "groq", Model: "custom"}))
}

func TestNewCacheStore_DB(t *testing.T) {
	store, closeFn, err := NewCacheStore(context.Background(), common.CacheConfig{Backend: "db"}, nil, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	_, ok := store.(*repo.RecommendationRepository)
	assert.True(t, ok)
	closeFn()
}

func TestNewCacheStore_RedisUnreachable(t *testing.T) {
	_, closeFn, err := NewCacheStore(context.Background(), common.CacheConfig{Backend: "redis", RedisAddr: "127.0.0.1:1"}, nil, slog.Default())
	assert.Error(t, err)
	closeFn()
}
