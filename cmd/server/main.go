package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"hradmin/internal/app/server"
	"hradmin/internal/platform/config"
	"hradmin/internal/platform/logging"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	app, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
