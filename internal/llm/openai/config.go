package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Groq serves an OpenAI-compatible chat/completions API.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"
)

// Config for an OpenAI-compatible chat completions backend.
type Config struct {
	APIKey      string  // if empty, falls back to env GROQ_API_KEY then OPENAI_API_KEY
	BaseURL     string  // default Groq
	Model       string  // used when a call passes no model
	Temperature float32 // 0..2
	Timeout     time.Duration
	// JSONMode asks the backend for response_format json_object.
	JSONMode bool
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("provider", "openai"),
	}
}
