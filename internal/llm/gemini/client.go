package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/joseph-ayodele/guidify/internal/llm"
)

var (
	_ llm.Generator       = (*Client)(nil)
	_ llm.StreamGenerator = (*Client)(nil)
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content      `json:"contents"`
	SystemInstruction *content       `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]any `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// text concatenates the parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (c *Client) Generate(ctx context.Context, prompt, systemInstruction, model string) (string, error) {
	raw, _, err := llm.SendJSON(ctx, c.http, c.url(model, "generateContent", nil), c.request(prompt, systemInstruction), c.headers(), c.logger)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		if r := resp.PromptFeedback.BlockReason; r != "" {
			return "", fmt.Errorf("gemini blocked prompt: %s", r)
		}
		return "", errors.New("no candidates in gemini response")
	}
	return strings.TrimSpace(resp.text()), nil
}

func (c *Client) GenerateStream(ctx context.Context, prompt, systemInstruction, model string) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errc := make(chan error, 1)
	endpoint := c.url(model, "streamGenerateContent", url.Values{"alt": {"sse"}})
	body := c.request(prompt, systemInstruction)

	go func() {
		defer close(chunks)
		defer close(errc)
		client := &http.Client{Transport: c.http.Transport}
		err := llm.StreamJSON(ctx, client, endpoint, body, c.headers(), c.logger, func(data []byte) error {
			var resp generateResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("decode stream chunk: %w", err)
			}
			t := resp.text()
			if t == "" {
				return nil
			}
			select {
			case chunks <- t:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errc <- err
		}
	}()
	return chunks, errc
}

func (c *Client) request(prompt, systemInstruction string) generateRequest {
	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: map[string]any{"temperature": c.cfg.Temperature},
	}
	if systemInstruction != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemInstruction}}}
	}
	return req
}

func (c *Client) url(model, method string, q url.Values) string {
	if model == "" {
		model = c.cfg.Model
	}
	u := fmt.Sprintf("%s/models/%s:%s", strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(model), method)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// headers carries the API key; it never goes into the URL, which transport
// errors echo into logs.
func (c *Client) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.cfg.APIKey}
}
