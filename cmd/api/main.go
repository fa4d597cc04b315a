package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"outfit-db-api/internal/config"
	"outfit-db-api/internal/handler"
	"outfit-db-api/internal/middleware"
	"outfit-db-api/internal/ratelimit"
	"outfit-db-api/internal/repository"
	"outfit-db-api/internal/router"
	"outfit-db-api/internal/service"
	"outfit-db-api/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.App.IsDevelopment(),
		Debug:       cfg.App.Debug,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting outfit database API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("db_type", cfg.Database.Type),
	)

	// Initialize outfit repository based on config
	repo, err := repository.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open outfit repository: %w", err)
	}
	defer repo.Close()

	// Rate limiter store
	var (
		limiter     ratelimit.Limiter
		redisClient *redis.Client
	)
	limitCfg := ratelimit.Config{Window: cfg.RateLimit.Window, MaxRequests: cfg.RateLimit.MaxRequests}
	switch cfg.RateLimit.Store {
	case "redis":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Address(), err)
		}
		limiter = ratelimit.NewRedisLimiter(redisClient, limitCfg)
		logger.Info("redis rate limiter initialized", zap.String("addr", cfg.Redis.Address()))
	default:
		limiter = ratelimit.NewMemoryLimiter(limitCfg)
	}

	// Initialize services
	allocator := service.NewIDAllocator(repo, service.RandomUniqueID, logger)
	outfitService := service.NewOutfitService(repo, allocator, logger)

	// Initialize handlers
	healthHandler := handler.New(repo)
	outfitHandler := handler.NewOutfitHandler(outfitService, logger)
	adminHandler := handler.NewAdminHandler(outfitService, handler.AdminInfo{
		Version:        cfg.App.Version,
		Environment:    cfg.App.Environment,
		RateLimitStore: cfg.RateLimit.Store,
	}, logger)

	keys := cfg.Auth.Keys()
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		APIKeys: keys,
		Logger:  logger,
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		OutfitHandler:  outfitHandler,
		AdminHandler:   adminHandler,
		AuthMiddleware: authMiddleware,
		RateLimit:      middleware.NewRateLimit(limiter, logger),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TrustProxy:     cfg.Server.TrustProxy,
		Logger:         logger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
