package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sbvm/voucher-portal/internal/config"
	"github.com/sbvm/voucher-portal/internal/gateway"
	"github.com/sbvm/voucher-portal/internal/handler"
	"github.com/sbvm/voucher-portal/internal/ratelimit"
	"github.com/sbvm/voucher-portal/internal/repository"
	"github.com/sbvm/voucher-portal/internal/service"
	"github.com/sbvm/voucher-portal/internal/validator"
	"github.com/sbvm/voucher-portal/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Context for startup and background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Voucher Portal",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Rate limiter: Redis when configured, in-process buckets otherwise
	limiter := newLimiter(ctx, cfg)

	// Gateway notifier: log-only when no gateway URL is configured
	notifier := newNotifier(cfg)

	// Repositories and services (layered architecture)
	voucherRepo := repository.NewVoucherRepository(pool)
	leaderboardRepo := repository.NewLeaderboardRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)

	redeemService := service.NewRedeemService(voucherRepo, limiter, notifier, activityRepo, cfg.Redeem)
	voucherService := service.NewVoucherService(voucherRepo)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo, cfg.Leaderboard.RefreshInterval())

	redeemHandler := handler.NewRedeemHandler(redeemService, validate)
	voucherHandler := handler.NewVoucherHandler(voucherService, validate)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool)
	app.Get("/health", healthHandler.Check)

	// API routes
	app.Post("/api/redeem", redeemHandler.Redeem)
	app.Get("/api/leaderboard", leaderboardHandler.GetLeaderboard)
	app.Post("/api/vouchers", voucherHandler.CreateVoucher)
	app.Get("/api/vouchers/:code", voucherHandler.GetVoucher)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Stop background workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// newLimiter selects the rate limiter backend from configuration.
func newLimiter(ctx context.Context, cfg *config.Config) ratelimit.Limiter {
	if cfg.RateLimit.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		log.Info().Str("addr", cfg.RateLimit.RedisAddr).Msg("using redis rate limiter")
		return ratelimit.NewRedisLimiter(client, cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window())
	}

	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window())
	limiter.StartJanitor(ctx, cfg.RateLimit.Window())
	return limiter
}

// newNotifier selects the gateway notifier from configuration.
func newNotifier(cfg *config.Config) gateway.Notifier {
	if cfg.Gateway.URL == "" {
		log.Warn().Msg("GATEWAY_URL not set, access grants will only be logged")
		return gateway.NewLogNotifier()
	}
	return gateway.NewHTTPNotifier(cfg.Gateway.URL, cfg.Gateway.Timeout(), cfg.Gateway.MaxRetries)
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
