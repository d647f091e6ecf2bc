package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of PDF invoices to process (required)")
		out      = flag.String("out", "", "directory for the XLSX files (defaults to <dir>/xlsx)")
		provider = flag.String("provider", "offline", "offline or online")
		workers  = flag.Int("workers", 0, "worker count (defaults to WORKERS)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(*dir, "xlsx")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		printError("Error: cannot create output directory: %v\n", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if *workers > 0 {
		cfg.Pool.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := app.NewCore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build core", "error", err)
		os.Exit(1)
	}

	logger.Info("starting batch", "dir", *dir, "provider", *provider, "workers", cfg.Pool.Workers)
	results, stats, err := core.Intake.SubmitDirectory(ctx, *dir, *provider, true)
	if err != nil {
		logger.Error("failed to submit directory", "error", err)
		os.Exit(1)
	}

	// an interrupt cancels whatever is still queued or running
	go func() {
		<-ctx.Done()
		for _, r := range results {
			if r.JobID != "" {
				_, _ = core.Registry.RequestCancel(r.JobID)
			}
		}
	}()

	// Shutdown returns once the queue is drained and every worker is idle.
	if err := core.Shutdown(context.WithoutCancel(ctx)); err != nil {
		logger.Error("worker pool shutdown", "error", err)
	}

	var written, failed int
	for _, r := range results {
		if r.JobID == "" {
			continue
		}
		job, err := core.Registry.Get(r.JobID)
		if err != nil {
			failed++
			continue
		}
		if job.Status != constants.JobStatusCompleted {
			failed++
			printError("%s: %s %s\n", r.Path, job.Status, job.ErrorMessage)
			continue
		}
		data, err := core.Store.Get(context.WithoutCancel(ctx), job.Artifact)
		if err != nil {
			failed++
			printError("%s: load spreadsheet: %v\n", r.Path, err)
			continue
		}
		dest := filepath.Join(*out, pipeline.ArtifactKey(job))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			failed++
			printError("%s: write %s: %v\n", r.Path, dest, err)
			continue
		}
		written++
		fmt.Printf("%s -> %s (%d transactions, %s)\n", r.Path, dest, job.TransactionCount, job.Bank)
	}

	fmt.Printf("scanned=%d matched=%d submitted=%d deduplicated=%d rejected=%d written=%d failed=%d\n",
		stats.Scanned, stats.Matched, stats.Submitted, stats.Deduplicated, stats.Failed, written, failed)
	if failed > 0 || stats.Failed > 0 {
		os.Exit(1)
	}
}
