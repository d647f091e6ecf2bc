package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// Config for the local Ollama server.
type Config struct {
	BaseURL string        // default http://localhost:11434
	Model   string        // default llama3.1:8b
	Timeout time.Duration // local models are slow; default 5m
}

// Client talks to Ollama's /api/chat in JSON mode.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1:8b"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

func (c *Client) Backend() string { return "ollama" }
func (c *Client) Model() string   { return c.cfg.Model }

// Chat sends a single user turn. The system prompt is folded into the user
// message since small local models follow it more reliably there.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	prompt := system + "\n\nIMPORTANT: You MUST respond with ONLY valid JSON. No explanations, no markdown, no code blocks. Just the raw JSON object.\n\n" + user
	body := map[string]any{
		"model":    c.cfg.Model,
		"messages": []map[string]any{{"role": "user", "content": prompt}},
		"stream":   false,
		"format":   "json",
		"options":  map[string]any{"temperature": 0},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/chat"
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, nil, c.logger)
	if err != nil {
		if status != 0 {
			return "", fmt.Errorf("ollama status %d: %s", status, truncate(string(raw), 300))
		}
		return "", fmt.Errorf("ollama connection error: %w (is Ollama running at %s?)", err, c.cfg.BaseURL)
	}

	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("invalid response from ollama: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	content := strings.TrimSpace(out.Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return llm.StripCodeFences(content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
