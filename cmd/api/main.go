package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gravadigital/wishdraw-api/internal/auth"
	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/server"
	"github.com/gravadigital/wishdraw-api/internal/services"
	"github.com/gravadigital/wishdraw-api/internal/storage"
	"github.com/gravadigital/wishdraw-api/internal/storage/objects"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Initialize("info")
		logger.Get().Fatal("Invalid configuration", "error", err)
	}

	logger.Initialize(cfg.LogLevel)

	if err := run(cfg); err != nil {
		logger.Get().Fatal("Server failed", "error", err)
	}
}

// run owns every resource opened after configuration and closes them on return
func run(cfg *config.Config) error {
	log := logger.Get()

	factory, err := storage.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid storage configuration: %w", err)
	}

	store, err := factory.CreateStore(cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Type, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	mode, err := draw.ParseMode(cfg.Draw.Mode)
	if err != nil {
		return fmt.Errorf("invalid draw mode: %w", err)
	}
	draws := draw.NewService(store, mode, draw.WithMaxClaimAttempts(cfg.Draw.MaxClaimAttempts))

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	if err != nil {
		return fmt.Errorf("configure tokens: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := server.Dependencies{
		Store:        store,
		Draws:        draws,
		Participants: services.NewParticipantService(store, tokens, cfg.Auth.BcryptCost),
		Tokens:       tokens,
	}

	if cfg.ObjectStorageEnabled() {
		exporter, err := objects.NewMinioExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("configure object storage at %s: %w", cfg.ObjectStorage.Endpoint, err)
		}
		deps.Exporter = exporter
	}

	srv := server.New(cfg, deps)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
	return serveErr
}
