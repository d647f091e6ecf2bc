package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Config for the Gemini API.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	BaseURL     string // tests only
}

// Client implements llm.ChatClient on the Google GenAI SDK.
type Client struct {
	cfg    Config
	client *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return &Client{cfg: cfg, client: client, logger: logger}, nil
}

func (c *Client) Backend() string { return "gemini" }
func (c *Client) Model() string   { return c.cfg.Model }

func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.cfg.Temperature),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(system)},
		},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{genai.NewPartFromText(user)},
		},
	}, config)
	if err != nil {
		c.logger.Error("llm.gemini.request_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini: %w", err)
	}

	out := strings.TrimSpace(resp.Text())
	c.logger.Info("llm.gemini.response", "model", c.cfg.Model, "bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds())
	if out == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return out, nil
}
