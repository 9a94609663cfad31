package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/auth"
	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/clock"
	"github.com/SAP-F-2025/evaluation-service/internal/config"
	"github.com/SAP-F-2025/evaluation-service/internal/handlers"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories/inmem"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
	"github.com/SAP-F-2025/evaluation-service/pkg"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("evaluation-service stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := utils.NewLogger(cfg.IsProduction())
	slogger := utils.ToSlogLogger(logger)
	clk := clock.Real()
	checks := make(map[string]handlers.HealthCheck)

	repo, closeStore, err := openStore(cfg, clk, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	cacheService, closeCache, err := openCache(cfg, clk, slogger, checks)
	if err != nil {
		return err
	}
	defer closeCache()

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	v := validator.New()
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		Publisher: publisher,
		Cache:     cacheService,
		Clock:     clk,
		Validator: v,
		Logger:    slogger,
		CacheTTL:  cfg.CacheTTL,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestID(), utils.LoggerMiddleware(logger))
	handlers.NewHandlerManager(serviceManager, v, logger, checks).
		SetupRoutes(router, auth.Middleware(sessionProvider(cfg), slogger))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting evaluation service",
			"port", cfg.Port,
			"storage", cfg.StorageDriver,
			"cache", cfg.CacheDriver,
			"auth", cfg.Auth.Provider)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down evaluation service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config, clk clock.Clock, checks map[string]handlers.HealthCheck) (repositories.Repository, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		return inmem.NewRepository(inmem.Open(clk)), func() {}, nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	checks["postgres"] = sqlDB.PingContext
	return postgres.NewRepository(db), func() { sqlDB.Close() }, nil
}

func openCache(cfg *config.Config, clk clock.Clock, logger *slog.Logger, checks map[string]handlers.HealthCheck) (cache.CacheService, func(), error) {
	if cfg.CacheDriver == config.CacheDriverMemory {
		return cache.NewMemoryCache(clk), func() {}, nil
	}

	client, err := pkg.NewRedisClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return cache.NewRedisCache(client, logger), func() { client.Close() }, nil
}

func sessionProvider(cfg *config.Config) auth.SessionProvider {
	if cfg.Auth.Provider == config.AuthProviderCasdoor {
		return auth.NewCasdoorProvider(auth.CasdoorConfig{
			Endpoint:     cfg.Auth.CasdoorEndpoint,
			ClientID:     cfg.Auth.CasdoorClientID,
			ClientSecret: cfg.Auth.CasdoorClientSecret,
			Certificate:  cfg.Auth.CasdoorCertificate,
			Organization: cfg.Auth.CasdoorOrganization,
			Application:  cfg.Auth.CasdoorApplication,
		})
	}
	return auth.NewJWTProvider(cfg.JWTSecret)
}
