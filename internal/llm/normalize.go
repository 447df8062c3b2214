package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Strategy names reported by Result.Strategy.
const (
	StrategyDirect = "direct"
	StrategyFenced = "fenced"
	StrategyBraces = "braces"
)

var reFenced = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Result is either Structured(payload) or Empty. The zero value is Empty.
type Result struct {
	payload  any
	strategy string
}

// EmptyResult is returned when nothing structured could be recovered.
var EmptyResult = Result{}

func (r Result) IsEmpty() bool { return r.payload == nil }

// Payload is a JSON object or array, or nil when empty.
func (r Result) Payload() any { return r.payload }

// Object returns the payload when it is a JSON object.
func (r Result) Object() (map[string]any, bool) {
	m, ok := r.payload.(map[string]any)
	return m, ok
}

func (r Result) Strategy() string { return r.strategy }

// Normalize recovers a JSON object or array from model output. Strategies run
// in order: the whole text, the first fenced code block, then the span from
// the first '{' to the last '}'. It never fails; unparseable input is Empty.
func Normalize(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyResult
	}
	if v, ok := parseTree(text); ok {
		return Result{payload: v, strategy: StrategyDirect}
	}
	if m := reFenced.FindStringSubmatch(text); m != nil {
		if v, ok := parseTree(strings.TrimSpace(m[1])); ok {
			return Result{payload: v, strategy: StrategyFenced}
		}
	}
	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		if v, ok := parseTree(text[start : end+1]); ok {
			return Result{payload: v, strategy: StrategyBraces}
		}
	}
	return EmptyResult
}

// parseTree accepts only objects and arrays; bare scalars are not payloads.
func parseTree(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return v, true
	default:
		return nil, false
	}
}
