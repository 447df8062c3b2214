package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/guidify/internal/metrics"
)

// ErrNoBackend is returned by Stream when the gateway was built without a generator.
var ErrNoBackend = errors.New("no generative backend configured")

// Fallback reasons reported in Outcome.Reason.
const (
	ReasonTransport   = "transport"
	ReasonEmpty       = "empty"
	ReasonNotObject   = "not_object"
	ReasonMissingKeys = "missing_keys"
	ReasonSchema      = "schema"
)

// Request describes one call site's contract with the backend.
type Request struct {
	Name              string // call site, used for logs and metrics
	Prompt            string
	SystemInstruction string
	Model             string // "" uses the gateway default
	// FallbackModels are tried in order when a model fails in transport.
	FallbackModels []string
	RequiredKeys   []string
	// Schema optionally tightens validation beyond RequiredKeys (e.g. minItems).
	Schema map[string]any
}

// Outcome is always structurally valid: Payload carries every required key
// whenever the fallback does.
type Outcome struct {
	Payload  map[string]any
	Fallback bool
	Reason   string
	Strategy string
	Elapsed  time.Duration
}

type Gateway struct {
	gen          Generator
	defaultModel string
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type GatewayOption func(*Gateway)

func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithDefaultModel(model string) GatewayOption {
	return func(g *Gateway) {
		if model != "" {
			g.defaultModel = model
		}
	}
}

func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

func NewGateway(gen Generator, logger *slog.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{gen: gen, logger: logger, timeout: 45 * time.Second}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Invoke calls the backend once and returns its structured answer, or
// fallback() when the call fails, times out, or the answer does not satisfy
// the request's required keys and schema. It never returns an error.
func (g *Gateway) Invoke(ctx context.Context, req Request, fallback func() map[string]any) Outcome {
	rid := uuid.New().String()
	start := time.Now()
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}

	g.logger.Info("llm.invoke.start",
		"req_id", rid,
		"call", req.Name,
		"model", model,
		"prompt_len", len(req.Prompt),
		"required", req.RequiredKeys,
	)

	text, err := g.generate(ctx, rid, req, model)
	if err != nil {
		g.logger.Error("llm.invoke.transport_error", "req_id", rid, "call", req.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return g.fallback(rid, req, fallback, ReasonTransport, start)
	}

	res := Normalize(text)
	if res.IsEmpty() {
		g.logger.Warn("llm.invoke.unparseable", "req_id", rid, "call", req.Name, "text_len", len(text))
		return g.fallback(rid, req, fallback, ReasonEmpty, start)
	}
	payload, ok := res.Object()
	if !ok {
		g.logger.Warn("llm.invoke.not_object", "req_id", rid, "call", req.Name, "strategy", res.Strategy())
		return g.fallback(rid, req, fallback, ReasonNotObject, start)
	}
	if missing := MissingKeys(payload, req.RequiredKeys); len(missing) > 0 {
		g.logger.Warn("llm.invoke.missing_keys", "req_id", rid, "call", req.Name, "missing", missing)
		return g.fallback(rid, req, fallback, ReasonMissingKeys, start)
	}
	if req.Schema != nil {
		if err := ValidateValue(req.Schema, payload); err != nil {
			g.logger.Warn("llm.invoke.schema_mismatch", "req_id", rid, "call", req.Name, "error", err)
			return g.fallback(rid, req, fallback, ReasonSchema, start)
		}
	}

	elapsed := time.Since(start)
	g.metrics.Generation(req.Name, "ok", elapsed.Seconds())
	g.logger.Info("llm.invoke.ok",
		"req_id", rid,
		"call", req.Name,
		"strategy", res.Strategy(),
		"keys", len(payload),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return Outcome{Payload: payload, Strategy: res.Strategy(), Elapsed: elapsed}
}

func (g *Gateway) generate(ctx context.Context, rid string, req Request, model string) (string, error) {
	if g.gen == nil {
		return "", ErrNoBackend
	}
	models := append([]string{model}, req.FallbackModels...)
	var err error
	for i, m := range models {
		if i > 0 {
			g.logger.Warn("llm.invoke.model_fallback", "req_id", rid, "call", req.Name, "model", m, "previous_error", err)
		}
		var text string
		text, err = g.once(ctx, req, m)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return "", err
}

func (g *Gateway) once(ctx context.Context, req Request, model string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.gen.Generate(ctx, req.Prompt, req.SystemInstruction, model)
}

func (g *Gateway) fallback(rid string, req Request, fallback func() map[string]any, reason string, start time.Time) Outcome {
	var payload map[string]any
	if fallback != nil {
		payload = fallback()
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if missing := MissingKeys(payload, req.RequiredKeys); len(missing) > 0 {
		g.logger.Error("llm.invoke.fallback_incomplete", "req_id", rid, "call", req.Name, "missing", missing)
	}
	elapsed := time.Since(start)
	g.metrics.Generation(req.Name, "fallback_"+reason, elapsed.Seconds())
	g.logger.Info("llm.invoke.fallback", "req_id", rid, "call", req.Name, "reason", reason,
		"elapsed_ms", elapsed.Milliseconds())
	return Outcome{Payload: payload, Fallback: true, Reason: reason, Elapsed: elapsed}
}

// Stream forwards partial text to onChunk as the backend produces it.
// Backends without streaming deliver their whole answer as one chunk.
// The gateway timeout bounds the wait for each chunk, so a stalled backend
// ends the stream with DeadlineExceeded. Unlike Invoke there is no
// fallback: failures are returned.
func (g *Gateway) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	if g.gen == nil {
		return ErrNoBackend
	}
	rid := uuid.New().String()
	start := time.Now()
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}
	g.logger.Info("llm.stream.start", "req_id", rid, "call", req.Name, "model", model)

	sg, ok := g.gen.(StreamGenerator)
	if !ok {
		text, err := g.once(ctx, req, model)
		if err != nil {
			g.metrics.Generation(req.Name, "stream_error", time.Since(start).Seconds())
			return err
		}
		return onChunk(text)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	chunks, errc := sg.GenerateStream(ctx, req.Prompt, req.SystemInstruction, model)
	n, err := g.relay(ctx, chunks, errc, onChunk)
	if err != nil {
		g.metrics.Generation(req.Name, "stream_error", time.Since(start).Seconds())
		g.logger.Error("llm.stream.error", "req_id", rid, "call", req.Name, "chunks", n, "error", err)
		return err
	}
	g.metrics.Generation(req.Name, "stream_ok", time.Since(start).Seconds())
	g.logger.Info("llm.stream.ok", "req_id", rid, "call", req.Name, "chunks", n,
		"elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// relay copies chunks to onChunk until the stream closes, then reports the
// backend's error. It gives up when no chunk arrives within g.timeout.
func (g *Gateway) relay(ctx context.Context, chunks <-chan string, errc <-chan error, onChunk func(string) error) (int, error) {
	idle := time.NewTimer(g.timeout)
	defer idle.Stop()
	stalled := func(n int) (int, error) {
		return n, status.Errorf(codes.DeadlineExceeded, "generative backend sent nothing for %s", g.timeout)
	}

	n := 0
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				select {
				case err := <-errc:
					return n, err
				case <-idle.C:
					return stalled(n)
				}
			}
			if err := onChunk(chunk); err != nil {
				return n, err
			}
			n++
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(g.timeout)
		case <-idle.C:
			return stalled(n)
		case <-ctx.Done():
			return n, ctx.Err()
		}
	}
}
