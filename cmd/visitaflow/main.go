package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/graceful"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/config"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/db"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/handler"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/manager"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/middleware"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/push"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/store"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/visits"
)

var name = "visitaflow-push"

func main() {
	genKeys := flag.Bool("genkeys", false, "generate a VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", publicKey, privateKey)
		return
	}

	// Initialize logger
	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := zapLogger.Sugar().Named(name)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.VAPID.Configured() {
		logger.Warn("VAPID keys are not configured, push delivery is disabled until they are set")
	}

	ctx := context.Background()

	// Choose the subscription store. Without a database the server keeps
	// subscriptions in memory, which is enough for local development.
	var subs store.SubscriptionStore
	var visitSource visits.DueVisitSource
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to the database", zap.Error(err))
		}
		defer database.Close()

		subs = store.NewPostgresStore(logger, database)
		visitSource = visits.NewPostgresVisitSource(logger, database)
	} else {
		logger.Warn("DATABASE_URL is not set, using the in-memory subscription store")
		subs = store.NewMemoryStore()
	}

	// Create JWT manager
	jwtManager, err := manager.NewJWTManager(cfg.JWTPublicKey, cfg.JWTPrivateKey)
	if err != nil {
		logger.Fatal("Failed to create JWT manager", zap.Error(err))
	}

	// Create the dispatcher and handler instances
	dispatcher := push.NewDispatcher(logger, subs, push.NewWebPushGateway(cfg.VAPID), cfg.VAPID)
	pushHandler := handler.NewPushHandler(logger, subs, dispatcher, cfg.VAPID)
	healthHandler := handler.NewHealthHandler()
	mw := middleware.NewMiddleware(logger, jwtManager, cfg.InternalSecret)
	middleware.RegisterValidators()

	// Expose HTTP endpoint with graceful shutdown
	r, err := graceful.New(gin.New(), graceful.WithAddr(":"+cfg.Port))
	if err != nil {
		logger.Fatal(err)
	}
	setupCommonMiddleware(r, zapLogger, cfg.AllowedOrigins)
	setupRoutes(r, mw, pushHandler, healthHandler)

	// Create a context that listens for termination signals
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the visit reminder in a separate goroutine. It needs the database;
	// the in-memory mode has no visit table to sweep.
	if visitSource != nil {
		reminder := visits.NewReminder(logger, visitSource, dispatcher, cfg.ReminderInterval, cfg.ReminderBatch)
		go reminder.Start(ctx)
	}

	// Run the gin server
	logger.Infof("Starting server on port %s...", cfg.Port)
	if err = r.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Server error: %v", err)
	}
	logger.Info("Server stopped gracefully")
}

func setupCommonMiddleware(r *graceful.Graceful, logger *zap.Logger, allowedOrigins []string) {
	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))
}

func setupRoutes(r *graceful.Graceful, mw *middleware.Middleware, pushHandler handler.PushHdlr, healthHandler *handler.HealthHandler) {
	r.GET("/health", healthHandler.Check)
	// The worker script is served from the root so it can control the origin.
	r.GET("/sw.js", handler.ServeWorkerScript)

	apiRouter := r.Group("/api")
	apiRouter.GET("/push/vapid-key", pushHandler.GetVAPIDKey)
	apiRouter.POST("/push/subscribe", mw.RequireAuth(), pushHandler.Subscribe)
	apiRouter.POST("/push/send", mw.RequireInternalSecret(), pushHandler.Send)
}
