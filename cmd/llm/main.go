package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <statement.txt> [offline|online] [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	provider := constants.ProviderOffline
	if len(os.Args) >= 3 {
		p, err := constants.ParseProvider(os.Args[2])
		if err != nil {
			logger.Error("invalid provider", "arg", os.Args[2], "error", err)
			os.Exit(2)
		}
		provider = p
	}
	times := 1
	if len(os.Args) >= 4 {
		if n, err := strconv.Atoi(os.Args[3]); err == nil && n > 0 {
			times = n
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	pages := entity.SplitPages(string(raw))
	for i := range pages {
		pages[i].Text = extract.Normalize(pages[i].Text)
	}
	if !entity.HasText(pages) {
		logger.Error("no text in input", "path", path)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg := common.LoadConfig()
	providers, err := app.NewProviders(ctx, cfg, logger)
	if err != nil {
		logger.Error("build providers", "error", err)
		os.Exit(1)
	}
	backend, err := providers.For(provider)
	if err != nil {
		logger.Error("provider unavailable", "provider", provider, "error", err)
		os.Exit(1)
	}

	bank := constants.UnknownBank
	if id, ok := backend.(llm.BankIdentifier); ok {
		if res, err := id.IdentifyBank(ctx, pages[0].Text); err == nil {
			bank = constants.CanonicalBank(res.Name)
			logger.Info("bank identified", "bank", bank, "confidence", res.Confidence)
		}
	}

	// repeated runs show how stable a model's answers are
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i := 1; i <= times; i++ {
		start := time.Now()
		answer, err := backend.Infer(ctx, entity.CombinePages(pages))
		if err != nil {
			logger.Error("infer", "run", i, "error", err)
			os.Exit(1)
		}
		txs, rep, err := llm.ParseTransactions(answer, bank, logger)
		if err != nil {
			logger.Error("parse", "run", i, "error", err)
			os.Exit(1)
		}
		logger.Info("run done", "run", i, "model", backend.Model(), "kept", rep.Kept,
			"duplicates", rep.Duplicates, "dropped", len(rep.Dropped), "duration_ms", time.Since(start).Milliseconds())
		if err := enc.Encode(txs); err != nil {
			logger.Error("encode", "error", err)
			os.Exit(1)
		}
	}
}
