package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mssp-soc/portal-gateway/pkg/api"
	"github.com/mssp-soc/portal-gateway/pkg/auth"
	"github.com/mssp-soc/portal-gateway/pkg/config"
	"github.com/mssp-soc/portal-gateway/pkg/postgres"
	"github.com/mssp-soc/portal-gateway/pkg/services"
	"github.com/mssp-soc/portal-gateway/pkg/siem"
)

// @title SOC Client Portal API
// @version 1.0
// @description Multi-tenant portal for SOC incident publishing, lifecycle tracking and SLA reporting
// @BasePath /api

func main() {
	// Configure Log Level from Environment Variable
	logLevelStr := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(logLevelStr) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.Infof("Log level set to: %s", logrus.GetLevel().String())

	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Connect to Postgres and apply the schema
	store, err := postgres.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logrus.Fatalf("Failed to apply schema: %v", err)
	}

	// Optional Redis cache for SLA queries
	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			logrus.Warnf("Redis unreachable, SLA cache disabled: %v", err)
			cache = nil
		} else {
			logrus.Infof("SLA cache enabled via Redis at %s", cfg.Redis.Addr)
		}
	}

	siemClient := siem.NewHTTPClient(cfg.SIEM.BaseURL, cfg.SIEM.Token)
	targets := cfg.SLATargets()

	// Initialize services
	authService := auth.NewService(store, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	incidentService := services.NewIncidentService(store, siemClient)
	slaService := services.NewSLAService(store, cache, time.Duration(cfg.Redis.CacheTTLSecs)*time.Second, targets)
	sourceService := services.NewSourceService(store)
	tenantService := services.NewTenantService(store)

	// Scheduled jobs: hourly SLA snapshots, 5-minute source health refresh
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 * * * *", func() {
		if err := slaService.SnapshotAllTenants(context.Background()); err != nil {
			logrus.Errorf("SLA snapshot run failed: %v", err)
		}
	}); err != nil {
		logrus.Fatalf("Failed to schedule SLA snapshots: %v", err)
	}
	if _, err := scheduler.AddFunc("*/5 * * * *", func() {
		if err := sourceService.RefreshStatuses(context.Background()); err != nil {
			logrus.Errorf("Source status refresh failed: %v", err)
		}
	}); err != nil {
		logrus.Fatalf("Failed to schedule source refresh: %v", err)
	}
	scheduler.Start()

	// Set up the Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.Server.AllowedOrigins, ","),
	}))

	// API routes
	apiHandler := api.NewAPIHandler(authService, incidentService, slaService, sourceService, tenantService)
	apiHandler.SetupRoutes(e, auth.JWTMiddleware(authService))

	// Operational endpoints
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger documentation
	e.GET("/swagger/*", echo.WrapHandler(httpSwagger.Handler()))

	// Create HTTP server
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logrus.Infof("Starting server on port %s", port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Stop scheduled jobs, waiting for any in-flight run
	<-scheduler.Stop().Done()

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}
