package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Pool      PoolConfig
	Extract   ExtractConfig
	Offline   OfflineConfig
	Online    OnlineConfig
	Artifacts ArtifactConfig
	Inbox     InboxConfig
	Reporter  ReporterConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr     string
	GRPCAddr     string
	KeepAlive    time.Duration
	MaxUploadMB  int
	ShutdownWait time.Duration
}

// PoolConfig sizes the worker pool and the subscriber buffers.
type PoolConfig struct {
	Workers          int
	JobTimeout       time.Duration
	SubscriberBuffer int
}

// ExtractConfig selects the PDF text backend.
type ExtractConfig struct {
	Backend   string // fitz | pdftotext
	Pdftotext string
}

// OfflineConfig configures the local Ollama backend.
type OfflineConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OnlineConfig configures the hosted backend.
type OnlineConfig struct {
	Backend        string // openai | anthropic | gemini
	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string
	AnthropicKey   string
	AnthropicModel string
	GeminiKey      string
	GeminiModel    string
	Temperature    float32
	Timeout        time.Duration
	RequestsPerSec float64
	IdentifyBank   bool
}

// ArtifactConfig controls where rendered spreadsheets live.
type ArtifactConfig struct {
	Dir string // empty keeps artifacts in memory
}

// InboxConfig configures the optional watched drop directory.
type InboxConfig struct {
	Dir      string
	Provider string
	Debounce time.Duration
}

// ReporterConfig schedules the periodic status log line.
type ReporterConfig struct {
	Schedule string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			HTTPAddr:     getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:     getEnv("GRPC_ADDR", ":9090"),
			KeepAlive:    getEnvAsDuration("SSE_KEEPALIVE", 15*time.Second),
			MaxUploadMB:  getEnvAsInt("MAX_UPLOAD_MB", 20),
			ShutdownWait: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Pool: PoolConfig{
			Workers:          getEnvAsInt("WORKERS", 2),
			JobTimeout:       getEnvAsDuration("JOB_TIMEOUT", 10*time.Minute),
			SubscriberBuffer: getEnvAsInt("SUBSCRIBER_BUFFER", 256),
		},
		Extract: ExtractConfig{
			Backend:   getEnv("PDF_BACKEND", "fitz"),
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
		},
		Offline: OfflineConfig{
			BaseURL: getEnv("OLLAMA_URL", "http://localhost:11434"),
			Model:   getEnv("OLLAMA_MODEL", "llama3.1:8b"),
			Timeout: getEnvAsDuration("OLLAMA_TIMEOUT", 5*time.Minute),
		},
		Online: OnlineConfig{
			Backend:        strings.ToLower(getEnv("ONLINE_BACKEND", "openai")),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			GeminiKey:      getEnv("GEMINI_API_KEY", ""),
			GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Temperature:    getEnvAsFloat32("ONLINE_TEMPERATURE", 0.0),
			Timeout:        getEnvAsDuration("ONLINE_TIMEOUT", 2*time.Minute),
			RequestsPerSec: getEnvAsFloat64("ONLINE_RPS", 2),
			IdentifyBank:   getEnvAsBool("IDENTIFY_BANK", true),
		},
		Artifacts: ArtifactConfig{
			Dir: getEnv("ARTIFACT_DIR", ""),
		},
		Inbox: InboxConfig{
			Dir:      getEnv("INBOX_DIR", ""),
			Provider: getEnv("INBOX_PROVIDER", "offline"),
			Debounce: getEnvAsDuration("INBOX_DEBOUNCE", 2*time.Second),
		},
		Reporter: ReporterConfig{
			Schedule: getEnv("STATUS_REPORT_SCHEDULE", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Pool.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKERS must be positive", ErrInvalidInput)
	}
	if c.Server.MaxUploadMB <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_UPLOAD_MB must be positive", ErrInvalidInput)
	}
	switch c.Extract.Backend {
	case "fitz", "pdftotext":
	default:
		return NewAppError("CONFIG_ERROR", "PDF_BACKEND must be fitz or pdftotext", ErrInvalidInput)
	}
	switch c.Online.Backend {
	case "openai", "anthropic", "gemini":
	default:
		return NewAppError("CONFIG_ERROR", "ONLINE_BACKEND must be openai, anthropic or gemini", ErrInvalidInput)
	}
	if c.Offline.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "OLLAMA_URL is required", ErrInvalidInput)
	}
	return nil
}

// OnlineAPIKey returns the key for the configured online backend.
func (c *Config) OnlineAPIKey() string {
	switch c.Online.Backend {
	case "anthropic":
		return c.Online.AnthropicKey
	case "gemini":
		return c.Online.GeminiKey
	}
	return c.Online.OpenAIKey
}
