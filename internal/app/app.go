// Package app assembles the extraction core from configuration. The service
// and the batch CLI share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/internal/artifact"
	"github.com/joseph-ayodele/invoice-extractor/internal/async"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/events"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/jobs"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/anthropic"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/ollama"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// Core is the wired job orchestrator.
type Core struct {
	Registry    *jobs.Registry
	Broadcaster *events.Broadcaster
	Pool        *async.WorkerPool
	Runner      *pipeline.Runner
	Intake      *ingest.Service
	Store       artifact.Store
	Providers   llm.Providers
}

// NewCore builds the registry, broadcaster, runner, worker pool and intake
// service. Workers start immediately.
func NewCore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Core, error) {
	providers, err := NewProviders(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(cfg.Artifacts)
	if err != nil {
		return nil, err
	}
	extractor := NewExtractor(cfg.Extract, logger)

	bc := events.NewBroadcaster(cfg.Pool.SubscriberBuffer, logger)
	reg := jobs.NewRegistry(bc, logger)
	runner := pipeline.NewRunner(reg, extractor, providers, export.NewXLSXRenderer(logger), store, logger,
		pipeline.WithBankIdentification(cfg.Online.IdentifyBank),
	)
	pool := async.NewWorkerPool(runner, logger,
		async.WithWorkers(cfg.Pool.Workers),
		async.WithProcessTimeout(cfg.Pool.JobTimeout),
		async.WithPanicHandler(runner.HandlePanic),
	)
	maxBytes := int64(cfg.Server.MaxUploadMB) << 20
	intake := ingest.NewService(reg, pool, extractor, providers, maxBytes, logger)

	return &Core{
		Registry:    reg,
		Broadcaster: bc,
		Pool:        pool,
		Runner:      runner,
		Intake:      intake,
		Store:       store,
		Providers:   providers,
	}, nil
}

// Shutdown drains the pool and detaches subscribers.
func (c *Core) Shutdown(ctx context.Context) error {
	err := c.Pool.Shutdown(ctx)
	c.Broadcaster.Close()
	return err
}

// NewExtractor returns the configured PDF text backend.
func NewExtractor(cfg common.ExtractConfig, logger *slog.Logger) extract.TextExtractor {
	if cfg.Backend == "pdftotext" {
		return extract.NewPdftotextExtractor(cfg.Pdftotext, logger)
	}
	return extract.NewFitzExtractor(logger)
}

// NewStore returns a directory store when a directory is configured, else
// an in-memory one.
func NewStore(cfg common.ArtifactConfig) (artifact.Store, error) {
	if cfg.Dir == "" {
		return artifact.NewMemoryStore(), nil
	}
	return artifact.NewDirStore(cfg.Dir)
}

// NewProviders builds the offline backend and, when its key is present, the
// online one. A missing key leaves Online nil so "online" jobs are refused at
// intake.
func NewProviders(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.Providers, error) {
	if logger == nil {
		logger = slog.Default()
	}
	offline := ollama.NewClient(ollama.Config{
		BaseURL: cfg.Offline.BaseURL,
		Model:   cfg.Offline.Model,
		Timeout: cfg.Offline.Timeout,
	}, logger)
	ps := llm.Providers{Offline: llm.NewEngine(offline, logger)}

	if cfg.OnlineAPIKey() == "" {
		logger.Warn("llm.online.disabled", "backend", cfg.Online.Backend, "reason", "api key not set")
		return ps, nil
	}
	client, err := NewOnlineClient(ctx, cfg.Online, logger)
	if err != nil {
		return llm.Providers{}, err
	}
	ps.Online = llm.NewEngine(llm.RateLimited(client, cfg.Online.RequestsPerSec), logger)
	logger.Info("llm.online.enabled", "backend", client.Backend(), "model", client.Model())
	return ps, nil
}

// NewOnlineClient returns the hosted backend named by cfg.Backend.
func NewOnlineClient(ctx context.Context, cfg common.OnlineConfig, logger *slog.Logger) (llm.ChatClient, error) {
	switch cfg.Backend {
	case "openai", "":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.AnthropicKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.Timeout,
		}, logger), nil
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
		}, logger)
	}
	return nil, fmt.Errorf("unknown online backend %q", cfg.Backend)
}
