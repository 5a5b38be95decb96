package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"campuscoin/internal/app"
	"campuscoin/internal/config"
	"campuscoin/internal/db"
	"campuscoin/internal/logging"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start backend", zap.Error(err))
	}
	defer backend.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, backend.DB.DB, "up"); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      backend.Handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("campuscoin API listening", zap.String("addr", server.Addr), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
