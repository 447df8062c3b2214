package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/guidify/internal/llm"
)

var (
	_ llm.Generator       = (*Client)(nil)
	_ llm.StreamGenerator = (*Client)(nil)
)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Generate implements llm.Generator with a single chat/completions call.
func (c *Client) Generate(ctx context.Context, prompt, systemInstruction, model string) (string, error) {
	start := time.Now()
	body := c.body(prompt, systemInstruction, model, false)

	raw, _, err := llm.SendJSON(ctx, c.http, c.endpoint(), body, c.headers(), c.logger)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.openai.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices in openai response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Debug("llm.openai.ok", "model", body["model"], "content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

// GenerateStream implements llm.StreamGenerator over server-sent events.
func (c *Client) GenerateStream(ctx context.Context, prompt, systemInstruction, model string) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errc := make(chan error, 1)
	body := c.body(prompt, systemInstruction, model, true)

	go func() {
		defer close(chunks)
		defer close(errc)
		// Streams are bounded by ctx, not by the client timeout.
		client := &http.Client{Transport: c.http.Transport}
		err := llm.StreamJSON(ctx, client, c.endpoint(), body, c.headers(), c.logger, func(data []byte) error {
			var cc chatResponse
			if err := json.Unmarshal(data, &cc); err != nil {
				return fmt.Errorf("decode stream chunk: %w", err)
			}
			for _, ch := range cc.Choices {
				if ch.Delta.Content == "" {
					continue
				}
				select {
				case chunks <- ch.Delta.Content:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil {
			errc <- err
		}
	}()
	return chunks, errc
}

func (c *Client) body(prompt, systemInstruction, model string, stream bool) map[string]any {
	if model == "" {
		model = c.cfg.Model
	}
	var messages []map[string]any
	if systemInstruction != "" {
		messages = append(messages, map[string]any{"role": "system", "content": systemInstruction})
	}
	messages = append(messages, map[string]any{"role": "user", "content": prompt})

	body := map[string]any{
		"model":       model,
		"temperature": c.cfg.Temperature,
		"messages":    messages,
	}
	if c.cfg.JSONMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}
