package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"tourplan/internal/api"
	"tourplan/internal/buildinfo"
	"tourplan/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("TOURPLAN_CONFIG"), "config file (.yaml, .yml or .toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		config.NewLogger(os.Stderr, log.InfoLevel).Fatal("load config", "err", err)
	}
	logger := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvDeps, err := api.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to init server", "err", err)
	}
	defer srvDeps.Close()

	// Export webhook worker
	if srvDeps.Export.Enabled() {
		srvDeps.NewExportWorker().Start(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srvDeps.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("API listening", "addr", srv.Addr, "version", buildinfo.Version)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			srvDeps.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", "err", err)
		}
	}
}
