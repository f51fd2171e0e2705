package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/batgear/batstore-backend/config"
	"github.com/batgear/batstore-backend/internal/app/controller"
	"github.com/batgear/batstore-backend/internal/app/repository"
	"github.com/batgear/batstore-backend/internal/app/service"
	"github.com/batgear/batstore-backend/internal/db"
	"github.com/batgear/batstore-backend/internal/middleware"
	"github.com/batgear/batstore-backend/internal/router"
	"github.com/batgear/batstore-backend/internal/scheduler"
	"github.com/batgear/batstore-backend/internal/storage"
	"github.com/batgear/batstore-backend/internal/websocket"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/batgear/batstore-backend/pkg/metrics"
	"github.com/batgear/batstore-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting BatStore Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}

	// Run migrations
	if err := db.Migrate(&cfg.Store); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	var idempotencyStore middleware.IdempotencyStore = middleware.NewMemoryIdempotencyStore()
	healthChecks := map[string]controller.Pinger{
		"database": controller.DatabasePinger(db.GetDB()),
	}
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		idempotencyStore = redis.NewIdempotencyStore(redis.GetClient())
		healthChecks["redis"] = controller.PingerFunc(func(ctx context.Context) error {
			return redis.GetClient().Ping(ctx).Err()
		})
	} else {
		logger.Warn("Redis disabled, using in-memory idempotency store and no token blacklist")
	}

	// Metrics
	var metricsHandler http.Handler
	var registerer prometheus.Registerer
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registerer = registry
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	checkoutMetrics := metrics.NewCheckoutMetrics(registerer)
	jobMetrics := metrics.NewJobMetrics(registerer)

	orderFeed := websocket.NewHub()
	go orderFeed.Run()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	contactRepo := repository.NewContactRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
		redis.BlacklistToken,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(db.GetDB(), orderRepo, productRepo, cartRepo, checkoutMetrics, orderFeed)
	contactService := service.NewContactService(contactRepo)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService, cfg.Store.LowStockThreshold)
	cartController := controller.NewCartController(cartService)
	orderController := controller.NewOrderController(orderService)
	contactController := controller.NewContactController(contactService)
	uploadController := controller.NewUploadController(storage.NewS3Storage(&cfg.S3))
	healthController := controller.NewHealthController(healthChecks)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	maintenance := scheduler.NewMaintenanceScheduler(cartService, productService, jobMetrics, scheduler.Config{
		CartItemTTL:       cfg.Store.CartItemTTL,
		CartCleanupSpec:   cfg.Store.CartCleanupSpec,
		LowStockThreshold: cfg.Store.LowStockThreshold,
		LowStockSpec:      cfg.Store.LowStockSpec,
	})
	if err := maintenance.Start(); err != nil {
		logger.Fatal("Failed to start maintenance scheduler", err)
	}

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		orderController,
		contactController,
		uploadController,
		healthController,
		authMiddleware,
		idempotencyStore,
		orderFeed,
		metricsHandler,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	err = multierr.Combine(
		srv.Shutdown(ctx),
		maintenance.Stop(ctx),
	)
	orderFeed.Stop()
	err = multierr.Append(err, redis.Close())
	err = multierr.Append(err, db.Close())

	if err != nil {
		logger.Error("Shutdown completed with errors", err)
		os.Exit(1)
	}
	logger.Info("Server stopped successfully")
}
