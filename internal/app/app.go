package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bengobox/church-admin/internal/audit"
	"github.com/bengobox/church-admin/internal/cache"
	"github.com/bengobox/church-admin/internal/config"
	"github.com/bengobox/church-admin/internal/database"
	"github.com/bengobox/church-admin/internal/httpapi"
	"github.com/bengobox/church-admin/internal/httpapi/handlers"
	httpmiddleware "github.com/bengobox/church-admin/internal/httpapi/middleware"
	"github.com/bengobox/church-admin/internal/password"
	"github.com/bengobox/church-admin/internal/revocation"
	"github.com/bengobox/church-admin/internal/services/auth"
	"github.com/bengobox/church-admin/internal/services/churches"
	"github.com/bengobox/church-admin/internal/services/orders"
	"github.com/bengobox/church-admin/internal/services/products"
	"github.com/bengobox/church-admin/internal/services/stats"
	"github.com/bengobox/church-admin/internal/services/stock"
	"github.com/bengobox/church-admin/internal/services/users"
	"github.com/bengobox/church-admin/internal/token"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App wires core dependencies and exposes server lifecycle controls.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	httpServer *http.Server
}

// New constructs the application.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	trusted, err := httpmiddleware.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("CHURCH_HTTP_TRUSTED_PROXIES: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.RunMigrations {
		applied, err := database.RunMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", zap.Strings("versions", applied))
		}
	}

	redisClient, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, err
	}

	tokenSvc, err := token.NewService(cfg.Token)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	hasher := password.NewHasher(cfg.Security)
	recorder := audit.NewRecorder(audit.NewPostgresStore(pool), logger)
	revocations := revocation.New(redisClient, cfg.Redis.Namespace)

	statsService := stats.New(stats.NewPostgresSource(pool), cache.NewJSON(redisClient, cfg.Redis.Namespace), logger)
	inventoryAuditor := stats.NewInvalidatingAuditor(recorder, statsService)

	userRepo := users.NewPostgresRepository(pool)
	churchService := churches.New(churches.NewPostgresRepository(pool), inventoryAuditor)
	userService := users.New(userRepo, hasher, recorder, cfg.Security.PasswordMinLength)
	productService := products.New(products.NewPostgresRepository(pool), inventoryAuditor)
	stockService := stock.New(stock.NewPostgresRepository(pool), productService, inventoryAuditor)
	orderService := orders.New(orders.NewPostgresRepository(pool), productService, churchService, recorder)
	authService := auth.New(auth.Dependencies{
		Users:             userRepo,
		Registrar:         auth.NewPostgresRegistrar(database.NewTransactor(pool)),
		Resets:            auth.NewPostgresResetStore(pool),
		Tokens:            tokenSvc,
		Revoker:           revocations,
		Hasher:            hasher,
		Auditor:           inventoryAuditor,
		Logger:            logger,
		PasswordMinLength: cfg.Security.PasswordMinLength,
		ResetTTL:          cfg.Token.ResetTTL,
	})

	authMiddleware := httpmiddleware.NewAuth(tokenSvc, revocations, logger)
	deps := httpapi.RouterDeps{
		HealthHandler:      handlers.Health,
		ReadyHandler:       handlers.Ready(pool, logger),
		MetricsHandler:     promhttp.Handler(),
		RequireAuthHandler: authMiddleware.RequireAuth,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RequestTimeout:     cfg.HTTP.RequestTimeout,

		Auth:     handlers.NewAuthHandler(authService, logger, cfg.App.IsDevelopment()),
		Churches: handlers.NewChurchHandler(churchService, logger),
		Users:    handlers.NewUserHandler(userService, logger),
		Products: handlers.NewProductHandler(productService, logger),
		Stock:    handlers.NewStockHandler(stockService, logger),
		Orders:   handlers.NewOrderHandler(orderService, logger),
		Audit:    handlers.NewAuditHandler(recorder, logger),
		Stats:    handlers.NewStatsHandler(statsService, logger),
	}
	if cfg.RateLimit.Enabled {
		limiter := httpmiddleware.NewRateLimiter(redisClient, cfg.Redis.Namespace, trusted, logger)
		deps.RateLimitLogin = limiter.Limit("login", cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow)
		deps.RateLimitReset = limiter.Limit("password-reset", cfg.RateLimit.ResetRequests, cfg.RateLimit.ResetWindow)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           httpapi.NewRouter(deps),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		httpServer: server,
	}, nil
}

// Run starts the HTTP server with TLS if certificates are configured.
func (a *App) Run() error {
	if a.cfg.HTTP.TLSCertFile != "" && a.cfg.HTTP.TLSKeyFile != "" {
		a.logger.Info("starting HTTPS server",
			zap.String("cert", a.cfg.HTTP.TLSCertFile),
			zap.String("addr", a.httpServer.Addr),
		)
		return a.httpServer.ListenAndServeTLS(a.cfg.HTTP.TLSCertFile, a.cfg.HTTP.TLSKeyFile)
	}
	a.logger.Info("starting HTTP server", zap.String("addr", a.httpServer.Addr))
	return a.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and closes resources.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownErr := a.httpServer.Shutdown(ctx)

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis client", zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}
	return shutdownErr
}
