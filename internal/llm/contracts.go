// Package llm wraps the generative text backend: one call per request, a
// tolerant parser for its free-text output, and caller-supplied fallbacks.
package llm

import "context"

// Generator is the backend contract. A transport failure is an error; an
// unhelpful answer is just text.
type Generator interface {
	Generate(ctx context.Context, prompt, systemInstruction, model string) (string, error)
}

// StreamGenerator is implemented by backends that can emit partial text.
// The chunk channel is closed when the stream ends; the error channel
// carries at most one error.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, prompt, systemInstruction, model string) (<-chan string, <-chan error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt, systemInstruction, model string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt, systemInstruction, model string) (string, error) {
	return f(ctx, prompt, systemInstruction, model)
}
