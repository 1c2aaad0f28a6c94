package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bengobox/church-admin/internal/app"
	"github.com/bengobox/church-admin/internal/config"
	"github.com/bengobox/church-admin/internal/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: could not load .env file: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck // best effort

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", logger.ZapError(err))
	}
}

// lifecycle is the part of *app.App that run drives.
type lifecycle interface {
	Run() error
	Shutdown(ctx context.Context) error
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	return serve(ctx, application, cfg.HTTP.ShutdownTimeout, zapLogger)
}

// serve runs srv until ctx ends or the listener fails. Both paths shut srv
// down so the database pool and Redis client are released.
func serve(ctx context.Context, srv lifecycle, shutdownTimeout time.Duration, zapLogger *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Run()
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("listener failed", logger.ZapError(err))
			runErr = err
		}
	case <-ctx.Done():
		zapLogger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, srv.Shutdown(shutdownCtx))
}
