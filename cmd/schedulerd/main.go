package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vsjangal/httpsched/internal/api"
	"github.com/Vsjangal/httpsched/internal/clock"
	"github.com/Vsjangal/httpsched/internal/config"
	"github.com/Vsjangal/httpsched/internal/core"
	"github.com/Vsjangal/httpsched/internal/logging"
	httpschedmcp "github.com/Vsjangal/httpsched/internal/mcp"
	"github.com/Vsjangal/httpsched/internal/store"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Mode)

	baseCtx := context.Background()
	db, err := store.Open(baseCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.DB.Close()

	realClock := clock.Real{}
	dispatcher := core.NewDispatcher(realClock, cfg.MaxResponseBytes)
	registry := core.NewRegistry()
	executor := core.NewRunExecutor(db, dispatcher, realClock, logger)
	engine := core.NewEngine(db, executor, registry, realClock, logger, cfg.PollInterval)
	control := core.NewControlSurface(db, realClock)

	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		logger.Error("start engine", "err", err)
		os.Exit(1)
	}

	switch cfg.Mode {
	case "http":
		runHTTPMode(cfg, db, control, logger, engine)
	case "mcp":
		runMCPMode(db, control, logger, engine, cfg.ShutdownGrace)
	case "both":
		runBothMode(cfg, db, control, logger, engine)
	default:
		logger.Error("invalid mode", "mode", cfg.Mode, "valid", []string{"http", "mcp", "both"})
		os.Exit(1)
	}
}

func runHTTPMode(cfg *config.Config, repo core.Repository, control *core.ControlSurface, logger *slog.Logger, engine *core.Engine) {
	srv := api.NewServer(cfg.Addr, cfg.AuthToken, repo, control, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}

	engine.Stop(cfg.ShutdownGrace)
}

func runMCPMode(repo core.Repository, control *core.ControlSurface, logger *slog.Logger, engine *core.Engine, shutdownGrace time.Duration) {
	mcpServer := httpschedmcp.NewMCPServer(repo, control, logger)

	mcpErr := make(chan error, 1)
	go func() {
		if err := mcpServer.Run(); err != nil {
			mcpErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-mcpErr:
		logger.Error("mcp server error", "err", err)
	}

	engine.Stop(shutdownGrace)
}

func runBothMode(cfg *config.Config, repo core.Repository, control *core.ControlSurface, logger *slog.Logger, engine *core.Engine) {
	mcpServer := httpschedmcp.NewMCPServer(repo, control, logger)
	mcpErr := make(chan error, 1)
	go func() {
		if err := mcpServer.Run(); err != nil {
			mcpErr <- err
		}
	}()

	srv := api.NewServer(cfg.Addr, cfg.AuthToken, repo, control, logger)
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	case err := <-mcpErr:
		logger.Error("mcp server error", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}

	engine.Stop(cfg.ShutdownGrace)
	logger.Info("shutdown complete")
}
