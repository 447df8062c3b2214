package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/guidify/internal/llm"
)

func TestGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/"+DefaultModel+":generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"{\"roadmap\":"},{"text":"[]}"}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", BaseURL: srv.URL}, nil)
	out, err := c.Generate(context.Background(), "plan", "you are a counselor", "")
	require.NoError(t, err)
	assert.Equal(t, `{"roadmap":[]}`, out)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "plan", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "you are a counselor", got.SystemInstruction.Parts[0].Text)
	assert.InDelta(t, 0.4, got.GenerationConfig["temperature"], 0.001)
}

func TestGenerateBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"promptFeedback":{"blockReason":"SAFETY"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Generate(context.Background(), "p", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "/models/custom:streamGenerateContent", r.URL.Path)
		_, _ = fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"a\"}]}}]}\r\n\r\n")
		_, _ = fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"b\"}]}}]}\n\n")
	}))
	defer srv.Close()

	chunks, errc := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).
		GenerateStream(context.Background(), "p", "", "custom")
	var got []string
	for ch := range chunks {
		got = append(got, ch)
	}
	assert.NoError(t, <-errc)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestTransportErrorsDoNotLogAPIKey(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := NewClient(Config{APIKey: "SECRET-KEY-123", BaseURL: "http://127.0.0.1:1"}, logger)
	gw := llm.NewGateway(c, logger)

	out := gw.Invoke(context.Background(), llm.Request{Name: "test", Prompt: "p", RequiredKeys: []string{"a"}},
		func() map[string]any { return map[string]any{"a": 1} })
	assert.True(t, out.Fallback)

	err := gw.Stream(context.Background(), llm.Request{Name: "test", Prompt: "p"}, func(string) error { return nil })
	require.Error(t, err)

	assert.Contains(t, logs.String(), "connection refused")
	assert.NotContains(t, logs.String(), "SECRET-KEY-123")
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}
