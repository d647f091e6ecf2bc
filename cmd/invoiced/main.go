package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/report"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := app.NewCore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build core", "error", err)
		os.Exit(1)
	}

	api := server.NewServer(core.Registry, core.Intake, core.Broadcaster, core.Store, server.Options{
		KeepAlive:      cfg.Server.KeepAlive,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	}, logger)
	httpSrv := api.HTTPServer(cfg.Server.HTTPAddr)
	grpcSrv, health := server.NewGRPCServer(logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("grpc listen", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			logger.Info("grpc serving", "addr", cfg.Server.GRPCAddr)
			return grpcSrv.Serve(lis)
		})
	}

	if cfg.Inbox.Dir != "" {
		inbox := ingest.NewInbox(core.Intake, ingest.WatchConfig{
			Dir:         cfg.Inbox.Dir,
			Provider:    cfg.Inbox.Provider,
			Debounce:    cfg.Inbox.Debounce,
			InitialScan: true,
		}, logger)
		g.Go(func() error { return inbox.Run(gctx) })
	}

	if cfg.Reporter.Schedule != "" {
		reporter := report.NewReporter(core.Registry, core.Pool, logger)
		g.Go(func() error { return reporter.Run(gctx, cfg.Reporter.Schedule) })
	}

	// shutdown fires on signal or on the first failing component
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		health.Shutdown()

		base := context.WithoutCancel(ctx)

		// closes the event streams before waiting on open requests
		httpCtx, cancelHTTP := context.WithTimeout(base, cfg.Server.ShutdownWait)
		defer cancelHTTP()
		if err := httpSrv.Shutdown(httpCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
		grpcSrv.GracefulStop()

		drainCtx, cancelDrain := context.WithTimeout(base, cfg.Server.ShutdownWait)
		defer cancelDrain()
		if err := core.Shutdown(drainCtx); err != nil {
			logger.Error("worker pool shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
