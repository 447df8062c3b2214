package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SendJSON posts body as JSON to url and returns the raw response body.
// Providers decide the URL and headers; non-2xx statuses are errors.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	reqID := uuid.New().String()
	start := time.Now()

	req, n, err := newJSONRequest(ctx, url, body, headers)
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, err
	}
	logger.Debug("llm.http.request", "req_id", reqID, "url", redactURL(url), "content_length", n)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer closeBody(resp.Body, logger, reqID)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}
	return raw, resp.StatusCode, nil
}

// StreamJSON posts body and calls onEvent with the data of every server-sent
// event until the stream ends, the callback fails, or ctx is done.
func StreamJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger, onEvent func(data []byte) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{}
	}
	reqID := uuid.New().String()

	req, _, err := newJSONRequest(ctx, url, body, headers)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.stream.send_error", "req_id", reqID, "error", err)
		return err
	}
	defer closeBody(resp.Body, logger, reqID)

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("non-2xx status: %d: %s", resp.StatusCode, string(raw))
	}
	return ReadSSE(resp.Body, onEvent)
}

// ReadSSE splits an event stream into "data:" payloads. A "[DONE]" payload ends the stream.
func ReadSSE(r io.Reader, onEvent func(data []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), 4<<20)
	var data []byte
	emit := func() error {
		if len(data) == 0 {
			return nil
		}
		d := data
		data = nil
		if bytes.Equal(bytes.TrimSpace(d), []byte("[DONE]")) {
			return io.EOF
		}
		return onEvent(d)
	}
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			if err := emit(); err != nil {
				return ignoreEOF(err)
			}
			continue
		}
		if bytes.HasPrefix(line, []byte("data:")) {
			chunk := bytes.TrimPrefix(bytes.TrimPrefix(line, []byte("data:")), []byte(" "))
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return ignoreEOF(emit())
}

func ignoreEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}

func newJSONRequest(ctx context.Context, url string, body any, headers map[string]string) (*http.Request, int, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, len(bs), nil
}

func closeBody(body io.ReadCloser, logger *slog.Logger, reqID string) {
	if err := body.Close(); err != nil {
		logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
	}
}

// redactURL drops the query string, which may carry an API key.
func redactURL(u string) string {
	if i := bytes.IndexByte([]byte(u), '?'); i >= 0 {
		return u[:i]
	}
	return u
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
