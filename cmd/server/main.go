package main

import (
	"context"   // Shutdown deadline
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"marketplace/internal/api"          // HTTP handlers and routes
	"marketplace/internal/config"       // Configuration
	"marketplace/internal/db"           // Database connection
	"marketplace/internal/integrations" // Third-party HTTP clients
	"marketplace/internal/telemetry"    // Error shipping hook

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	var hook *telemetry.Hook
	// Ship error-level entries to Sentry when a DSN is configured
	if cfg.SentryDSN != "" {
		env := "development"
		if cfg.IsProd {
			env = "production"
		}
		hook, err = telemetry.NewHook(cfg.SentryDSN, env)
		if err != nil {
			logrus.Fatalf("failed to init Sentry: %v", err)
		}
		logrus.AddHook(hook)
	}

	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	var describer api.Describer
	if cfg.GenAIAPIKey != "" {
		w, err := integrations.NewDescriptionWriter(context.Background(), cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			logrus.Fatalf("failed to create GenAI client: %v", err)
		}
		describer = w
	} else {
		logrus.Warn("GENAI_API_KEY not set, /ai/describe is disabled")
	}

	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := api.NewRouter(api.Deps{
		DB:              gdb,
		Redis:           redisClient,
		JWTSecret:       cfg.JWTSecret,
		TrustedProxies:  cfg.TrustedProxies,
		Geocoder:        integrations.NewGeocoder(cfg.GeocodeURL, cfg.GeocodeUserAgent, nil),
		Payments:        integrations.NewPaymentVerifier(cfg.PaymentBaseURL, cfg.PaymentSecretKey, nil),
		PaymentCurrency: cfg.PaymentCurrency,
		Describer:       describer,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for interrupt, then drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
	_ = redisClient.Close()
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	// Flush on its own budget; the shutdown ctx may already be spent
	if hook != nil && !hook.Close(5*time.Second) {
		logrus.Warn("Sentry flush timed out")
	}
}
