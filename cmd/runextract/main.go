package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <file.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	info, err := extract.Inspect(data)
	if err != nil {
		logger.Error("not a readable PDF", "path", path, "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	extractor := app.NewExtractor(cfg.Extract, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pages, err := extractor.Extract(ctx, data)
	if err != nil {
		logger.Error("extract", "path", path, "backend", cfg.Extract.Backend, "error", err)
		os.Exit(1)
	}
	logger.Info("extracted", "path", path, "backend", cfg.Extract.Backend, "pages", info.Pages, "text_pages", len(pages))

	for _, p := range pages {
		fmt.Printf("=== page %d ===\n%s\n", p.Number, p.Text)
	}
}
