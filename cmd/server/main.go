package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yukikurage/org-backoffice-api/internal/config"
	"github.com/yukikurage/org-backoffice-api/internal/database"
	"github.com/yukikurage/org-backoffice-api/internal/handlers"
	"github.com/yukikurage/org-backoffice-api/internal/logger"
	"github.com/yukikurage/org-backoffice-api/internal/metrics"
	"github.com/yukikurage/org-backoffice-api/internal/middleware"
	"github.com/yukikurage/org-backoffice-api/internal/repository"
	"github.com/yukikurage/org-backoffice-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Open(cfg)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("failed to run migrations", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	ownerRepo := repository.NewOwnershipRepository(db)

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiresIn)
	ownerships := services.NewOwnershipService(db, ownerRepo, orgRepo, userRepo, m)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(zapLogger), m.Middleware())

	r.GET("/health", handlers.Health)
	r.GET("/metrics", metrics.Handler(registry))

	handlers.RegisterRoutes(r, handlers.Services{
		Auth:          services.NewAuthService(userRepo, tokens, cfg.BcryptCost),
		Tokens:        tokens,
		Users:         services.NewUserService(db, userRepo, orgRepo, ownerRepo),
		Organizations: services.NewOrganizationService(db, orgRepo, ownerRepo, ownerships),
		Ownerships:    ownerships,
		Guards:        middleware.NewGuards(ownerships, m),
	})

	// Start server
	addr := ":" + cfg.Port
	zapLogger.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}
