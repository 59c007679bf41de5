package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/builder"
	appcfg "github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := builder.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- deps.Server.Listen(cfg.ListenAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http_listen_failed", zap.Error(err))
		}
	}

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := deps.Server.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("close_failed", zap.Error(err))
	}
}
