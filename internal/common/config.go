package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	OCR      OCRConfig      `toml:"ocr"`
	LLM      LLMConfig      `toml:"llm"`
	Cache    CacheConfig    `toml:"cache"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string   `toml:"driver"` // "postgres" or "sqlite"
	DSN              string   `toml:"dsn"`
	MaxConns         int32    `toml:"max_conns"`
	MinConns         int32    `toml:"min_conns"`
	MaxConnLifetime  Duration `toml:"max_conn_lifetime"`
	MaxConnIdleTime  Duration `toml:"max_conn_idle_time"`
	DialTimeout      Duration `toml:"dial_timeout"`
	StatementTimeout Duration `toml:"statement_timeout"`
	AutoMigrate      bool     `toml:"auto_migrate"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string   `toml:"http_addr"`
	GRPCAddr        string   `toml:"grpc_addr"`
	MaxUploadBytes  int64    `toml:"max_upload_bytes"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftoppm    string   `toml:"pdftoppm"`
	Tesseract   string   `toml:"tesseract"`
	Lang        string   `toml:"lang"`
	TessdataDir string   `toml:"tessdata_dir"`
	DPI         int      `toml:"dpi"`
	Timeout     Duration `toml:"timeout"`
}

// LLMConfig holds generative backend configuration
type LLMConfig struct {
	Provider    string   `toml:"provider"` // "gemini" or "groq"
	Model       string   `toml:"model"`
	APIKey      string   `toml:"api_key"`
	BaseURL     string   `toml:"base_url"`
	Temperature float32  `toml:"temperature"`
	Timeout     Duration `toml:"timeout"`
	// AnalysisFallbackModels are tried in order when the final psychometric
	// analysis fails on Model.
	AnalysisFallbackModels []string `toml:"analysis_fallback_models"`
}

// CacheConfig selects where recommendation cache entries live.
type CacheConfig struct {
	Backend       string `toml:"backend"` // "db" or "redis"
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// CatalogConfig points at the verified datasets used by recommendations.
type CatalogConfig struct {
	CollegesPath string `toml:"colleges_path"`
	NSQFPath     string `toml:"nsqf_path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// LoadConfig reads the optional TOML file at path and then applies environment overrides.
// Environment variables always win over file values; file values win over defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	setString(&c.Database.Driver, "postgres")
	setInt32(&c.Database.MaxConns, 20)
	setInt32(&c.Database.MinConns, 5)
	setDuration(&c.Database.MaxConnLifetime, 30*time.Minute)
	setDuration(&c.Database.MaxConnIdleTime, 5*time.Minute)
	setDuration(&c.Database.DialTimeout, 3*time.Second)

	setString(&c.Server.HTTPAddr, ":8000")
	setString(&c.Server.GRPCAddr, ":8081")
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 20 << 20
	}
	setDuration(&c.Server.ShutdownTimeout, 15*time.Second)

	setString(&c.OCR.Pdftoppm, "pdftoppm")
	setString(&c.OCR.Tesseract, "tesseract")
	setString(&c.OCR.Lang, "eng")
	if c.OCR.DPI <= 0 {
		c.OCR.DPI = 300
	}
	setDuration(&c.OCR.Timeout, 2*time.Minute)

	setString(&c.LLM.Provider, "gemini")
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.4
	}
	setDuration(&c.LLM.Timeout, 45*time.Second)

	setString(&c.Cache.Backend, "db")

	setString(&c.Log.Level, "info")
	setString(&c.Log.Format, "text")
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = Duration{getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime.Duration)}
	c.Database.MaxConnIdleTime = Duration{getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime.Duration)}
	c.Database.DialTimeout = Duration{getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout.Duration)}
	c.Database.StatementTimeout = Duration{getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout.Duration)}
	c.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MaxUploadBytes = int64(getEnvAsInt("MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))
	c.Server.ShutdownTimeout = Duration{getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout.Duration)}

	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Lang = getEnv("TESSERACT_LANG", c.OCR.Lang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.Timeout = Duration{getEnvAsDuration("OCR_TIMEOUT", c.OCR.Timeout.Duration)}

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	switch c.LLM.Provider {
	case "groq":
		c.LLM.APIKey = getEnv("GROQ_API_KEY", c.LLM.APIKey)
		c.LLM.Model = getEnv("GROQ_MODEL", c.LLM.Model)
	default:
		c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
		c.LLM.Model = getEnv("GEMINI_MODEL", c.LLM.Model)
	}
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = Duration{getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout.Duration)}
	c.LLM.AnalysisFallbackModels = getEnvAsList("LLM_ANALYSIS_FALLBACK_MODELS", c.LLM.AnalysisFallbackModels)

	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.RedisAddr = getEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvAsInt("REDIS_DB", c.Cache.RedisDB)

	c.Catalog.CollegesPath = getEnv("CATALOG_COLLEGES", c.Catalog.CollegesPath)
	c.Catalog.NSQFPath = getEnv("CATALOG_NSQF", c.Catalog.NSQFPath)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt32(dst *int32, def int32) {
	if *dst <= 0 {
		*dst = def
	}
}

func setDuration(dst *Duration, def time.Duration) {
	if dst.Duration <= 0 {
		dst.Duration = def
	}
}

// Duration decodes TOML strings such as "45s" into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "gemini", "groq":
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be gemini or groq", ErrInvalidInput)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return NewAppError("CONFIG_ERROR", "REDIS_ADDR is required when CACHE_BACKEND=redis", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
