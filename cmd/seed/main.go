package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/config"
	"github.com/bengobox/church-admin/internal/database"
	"github.com/bengobox/church-admin/internal/logger"
	"github.com/bengobox/church-admin/internal/password"
	"github.com/bengobox/church-admin/internal/seeding"
	"github.com/bengobox/church-admin/internal/services/auth"
	"github.com/bengobox/church-admin/internal/services/users"
	"github.com/bengobox/church-admin/internal/token"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// church-seed creates the default church and its admin. It runs migrations
// first and is safe to run repeatedly.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: could not load .env file: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(cfg.App)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck // best effort

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		zapLogger.Fatal("database connection", zap.Error(err))
	}
	defer pool.Close()

	if _, err := database.RunMigrations(ctx, pool); err != nil {
		zapLogger.Fatal("migrations", zap.Error(err))
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		if !cfg.App.IsDevelopment() {
			zapLogger.Fatal("SEED_ADMIN_PASSWORD is required outside development")
		}
		adminPassword = "ChangeMe123!"
		zapLogger.Warn("using default admin password - set SEED_ADMIN_PASSWORD")
	}

	tokens, err := token.NewService(cfg.Token)
	if err != nil {
		zapLogger.Fatal("token service", zap.Error(err))
	}
	userRepo := users.NewPostgresRepository(pool)
	authService := auth.New(auth.Dependencies{
		Users:             userRepo,
		Registrar:         auth.NewPostgresRegistrar(database.NewTransactor(pool)),
		Resets:            auth.NewPostgresResetStore(pool),
		Tokens:            tokens,
		Hasher:            password.NewHasher(cfg.Security),
		Auditor:           audit.NewRecorder(audit.NewPostgresStore(pool), zapLogger),
		Logger:            zapLogger,
		PasswordMinLength: cfg.Security.PasswordMinLength,
		ResetTTL:          cfg.Token.ResetTTL,
	})

	created, err := seeding.New(authService, userRepo, zapLogger).SeedDefaults(ctx, seeding.Defaults{
		ChurchName:    envOr("SEED_CHURCH_NAME", "Igreja Sede"),
		AdminName:     envOr("SEED_ADMIN_NAME", "Administrador"),
		AdminEmail:    envOr("SEED_ADMIN_EMAIL", "admin@igreja.local"),
		AdminPassword: adminPassword,
		AdminCPF:      envOr("SEED_ADMIN_CPF", "52998224725"),
		AdminPhone:    envOr("SEED_ADMIN_PHONE", "11999990000"),
	})
	if err != nil {
		zapLogger.Fatal("seeding", zap.Error(err))
	}
	zapLogger.Info("seeding completed", zap.Bool("created", created))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
