package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/agentarena/realtime-backend/internal/adapters/primary/http"
	mw "github.com/agentarena/realtime-backend/internal/adapters/primary/http/middleware"
	"github.com/agentarena/realtime-backend/internal/adapters/primary/websocket"
	"github.com/agentarena/realtime-backend/internal/adapters/secondary/memory"
	"github.com/agentarena/realtime-backend/internal/adapters/secondary/postgres"
	"github.com/agentarena/realtime-backend/internal/auth"
	"github.com/agentarena/realtime-backend/internal/config"
	"github.com/agentarena/realtime-backend/internal/core/ports"
	"github.com/agentarena/realtime-backend/internal/core/services"
	"github.com/agentarena/realtime-backend/internal/infrastructure/logging"
	"github.com/agentarena/realtime-backend/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Persistence (optional; in-memory without DATABASE_URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		pool     *pgxpool.Pool
		chatRepo ports.ChatRepository
		checker  httpAdapter.HealthChecker
	)
	if cfg.HasDatabase() {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			logger.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
		poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		logger.Info("database connection established")

		if err := runMigrations(cfg); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		chatRepo = postgres.NewChatRepository(pool)
		checker = pool
	} else {
		logger.Warn("no DATABASE_URL configured, using in-memory chat storage")
		chatRepo = memory.NewChatRepository()
	}

	// 4. Initialize Security, Metrics & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TokenTTL)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	hub := websocket.NewHub(logger, m, cfg.WebSocket.BroadcastBuffer)
	go hub.Run(ctx)

	// 5. Initialize Rate Limiter
	var rateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Services (Core)
	chatService := services.NewChatService(chatRepo, hub, services.ChatServiceConfig{
		MessagesPerSecond: cfg.Chat.MessagesPerSecond,
		Burst:             cfg.Chat.Burst,
		HistoryLimit:      cfg.Chat.HistoryLimit,
	}, logger)
	eventService := services.NewEventService(hub, logger)

	// Handlers (Primary Adapters)
	eventHandler := httpAdapter.NewEventHandler(eventService, logger)
	chatHandler := httpAdapter.NewChatHandler(chatService, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, chatService, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(checker, hub, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	corsOrigins := cfg.WebSocket.AllowedOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if rateLimiter != nil {
		r.Use(rateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// Metrics endpoint
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Producer ingest requires a valid agent token.
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTAuth(tokenManager))
			r.Post("/events", eventHandler.Ingest)
		})

		r.Get("/matches/{matchID}/chat", chatHandler.RecentMessages)
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	// Stop the hub after the HTTP server so in-flight sessions close cleanly.
	cancel()

	logger.Info("server shutdown complete")
}

// runMigrations applies pending schema migrations.
func runMigrations(cfg *config.Config) error {
	mig, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer mig.Close()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
