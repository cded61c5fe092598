package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dispatch-console/internal/app"
	"dispatch-console/internal/config"
	systemHandler "dispatch-console/internal/handlers/system"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}
	cfg := config.Load()

	logs := systemHandler.NewLogBuffer(0)
	logger, err := zap.NewProduction(zap.Hooks(logs.Hook))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := app.NewServer(ctx, cfg, logger, app.Options{Logs: logs})
	if err != nil {
		logger.Fatal("failed to build mock backend", zap.Error(err))
	}
	if err := srv.Start(ctx); err != nil {
		logger.Error("mock backend stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("mock backend stopped gracefully")
}
