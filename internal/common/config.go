package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	Temperature       float32
	ReportTemperature float32
	MaxTokens         int
	ReportMaxTokens   int
	Timeout           time.Duration // per extraction call
	ReportTimeout     time.Duration // composer call
	MaxRetries        int
	RequestsPerMinute int
	Concurrency       int
}

// PipelineConfig holds run-level configuration
type PipelineConfig struct {
	WorkflowTimeout time.Duration
	ChunkSize       int
	MergeSimilarity float64
	MaxPDFSizeMB    int
	OutputDir       string
	ExportXLSX      bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Supported LLM providers.
var Providers = []string{"gemini", "openai", "anthropic", "ollama"}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "gemini",
			Temperature:       0.3,
			ReportTemperature: 0.2,
			MaxTokens:         8000,
			ReportMaxTokens:   10000,
			Timeout:           120 * time.Second,
			ReportTimeout:     180 * time.Second,
			MaxRetries:        0,
			RequestsPerMinute: 60,
			Concurrency:       4,
		},
		Pipeline: PipelineConfig{
			WorkflowTimeout: 300 * time.Second,
			ChunkSize:       4000,
			MergeSimilarity: 0.85,
			MaxPDFSizeMB:    100,
			OutputDir:       "./output",
			ExportXLSX:      true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := DefaultConfig()
	applyEnv(cfg)
	return cfg
}

// LoadConfigFile layers a TOML file over the defaults, then the environment over both.
// An empty path behaves like LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
		fc.apply(cfg)
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.ReportTemperature = getEnvAsFloat32("REPORT_TEMPERATURE", cfg.LLM.ReportTemperature)
	cfg.LLM.MaxTokens = getEnvAsInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens)
	cfg.LLM.ReportMaxTokens = getEnvAsInt("REPORT_MAX_TOKENS", cfg.LLM.ReportMaxTokens)
	cfg.LLM.Timeout = getEnvAsSeconds("API_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.ReportTimeout = getEnvAsSeconds("REPORT_GEN_TIMEOUT", cfg.LLM.ReportTimeout)
	cfg.LLM.MaxRetries = getEnvAsInt("LLM_MAX_RETRIES", cfg.LLM.MaxRetries)
	cfg.LLM.RequestsPerMinute = getEnvAsInt("LLM_REQUESTS_PER_MINUTE", cfg.LLM.RequestsPerMinute)
	cfg.LLM.Concurrency = getEnvAsInt("LLM_CONCURRENCY", cfg.LLM.Concurrency)

	cfg.Pipeline.WorkflowTimeout = getEnvAsSeconds("REPORT_TIMEOUT", cfg.Pipeline.WorkflowTimeout)
	cfg.Pipeline.ChunkSize = getEnvAsInt("CHUNK_SIZE", cfg.Pipeline.ChunkSize)
	cfg.Pipeline.MergeSimilarity = getEnvAsFloat64("MERGE_SIMILARITY", cfg.Pipeline.MergeSimilarity)
	cfg.Pipeline.MaxPDFSizeMB = getEnvAsInt("MAX_PDF_SIZE_MB", cfg.Pipeline.MaxPDFSizeMB)
	cfg.Pipeline.OutputDir = getEnv("OUTPUT_DIR", cfg.Pipeline.OutputDir)
	cfg.Pipeline.ExportXLSX = getEnvAsBool("EXPORT_XLSX", cfg.Pipeline.ExportXLSX)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

// fileConfig mirrors Config for TOML files; nil fields keep the current value.
type fileConfig struct {
	LLM struct {
		Provider             *string  `toml:"provider"`
		Model                *string  `toml:"model"`
		APIKey               *string  `toml:"api_key"`
		BaseURL              *string  `toml:"base_url"`
		Temperature          *float32 `toml:"temperature"`
		ReportTemperature    *float32 `toml:"report_temperature"`
		MaxTokens            *int     `toml:"max_tokens"`
		ReportMaxTokens      *int     `toml:"report_max_tokens"`
		TimeoutSeconds       *int     `toml:"api_timeout"`
		ReportTimeoutSeconds *int     `toml:"report_gen_timeout"`
		MaxRetries           *int     `toml:"max_retries"`
		RequestsPerMinute    *int     `toml:"requests_per_minute"`
		Concurrency          *int     `toml:"concurrency"`
	} `toml:"llm"`
	Pipeline struct {
		WorkflowTimeoutSeconds *int     `toml:"report_timeout"`
		ChunkSize              *int     `toml:"chunk_size"`
		MergeSimilarity        *float64 `toml:"merge_similarity"`
		MaxPDFSizeMB           *int     `toml:"max_pdf_size_mb"`
		OutputDir              *string  `toml:"output_dir"`
		ExportXLSX             *bool    `toml:"export_xlsx"`
	} `toml:"pipeline"`
	Log struct {
		Level *string `toml:"level"`
	} `toml:"log"`
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.LLM.Provider, fc.LLM.Provider)
	setString(&cfg.LLM.Model, fc.LLM.Model)
	setString(&cfg.LLM.APIKey, fc.LLM.APIKey)
	setString(&cfg.LLM.BaseURL, fc.LLM.BaseURL)
	if fc.LLM.Temperature != nil {
		cfg.LLM.Temperature = *fc.LLM.Temperature
	}
	if fc.LLM.ReportTemperature != nil {
		cfg.LLM.ReportTemperature = *fc.LLM.ReportTemperature
	}
	setInt(&cfg.LLM.MaxTokens, fc.LLM.MaxTokens)
	setInt(&cfg.LLM.ReportMaxTokens, fc.LLM.ReportMaxTokens)
	setSeconds(&cfg.LLM.Timeout, fc.LLM.TimeoutSeconds)
	setSeconds(&cfg.LLM.ReportTimeout, fc.LLM.ReportTimeoutSeconds)
	setInt(&cfg.LLM.MaxRetries, fc.LLM.MaxRetries)
	setInt(&cfg.LLM.RequestsPerMinute, fc.LLM.RequestsPerMinute)
	setInt(&cfg.LLM.Concurrency, fc.LLM.Concurrency)

	setSeconds(&cfg.Pipeline.WorkflowTimeout, fc.Pipeline.WorkflowTimeoutSeconds)
	setInt(&cfg.Pipeline.ChunkSize, fc.Pipeline.ChunkSize)
	if fc.Pipeline.MergeSimilarity != nil {
		cfg.Pipeline.MergeSimilarity = *fc.Pipeline.MergeSimilarity
	}
	setInt(&cfg.Pipeline.MaxPDFSizeMB, fc.Pipeline.MaxPDFSizeMB)
	setString(&cfg.Pipeline.OutputDir, fc.Pipeline.OutputDir)
	if fc.Pipeline.ExportXLSX != nil {
		cfg.Pipeline.ExportXLSX = *fc.Pipeline.ExportXLSX
	}

	setString(&cfg.Log.Level, fc.Log.Level)
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Second
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// getEnvAsSeconds accepts plain seconds ("120") or a Go duration ("2m").
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ParseLogLevel maps LOG_LEVEL values onto slog levels, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if !isProvider(c.LLM.Provider) {
		return NewAppError(CodeConfig, "LLM_PROVIDER must be one of "+strings.Join(Providers, ", "), ErrInvalidInput)
	}
	if c.LLM.APIKey == "" && c.LLM.Provider != "ollama" {
		return NewAppError(CodeConfig, "LLM_API_KEY is required", ErrInvalidInput)
	}
	if c.LLM.Timeout <= 0 || c.LLM.ReportTimeout <= 0 {
		return NewAppError(CodeConfig, "API_TIMEOUT and REPORT_GEN_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Pipeline.WorkflowTimeout <= 0 {
		return NewAppError(CodeConfig, "REPORT_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Pipeline.ChunkSize <= 0 {
		return NewAppError(CodeConfig, "CHUNK_SIZE must be positive", ErrInvalidInput)
	}
	if c.Pipeline.MergeSimilarity <= 0 || c.Pipeline.MergeSimilarity > 1 {
		return NewAppError(CodeConfig, "MERGE_SIMILARITY must be in (0, 1]", ErrInvalidInput)
	}
	if c.Pipeline.MaxPDFSizeMB <= 0 {
		return NewAppError(CodeConfig, "MAX_PDF_SIZE_MB must be positive", ErrInvalidInput)
	}
	if c.Pipeline.OutputDir == "" {
		return NewAppError(CodeConfig, "OUTPUT_DIR is required", ErrInvalidInput)
	}
	return nil
}

func isProvider(p string) bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}
