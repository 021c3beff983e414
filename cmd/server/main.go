package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"coffee-backend/internal/archive"
	"coffee-backend/internal/auth"
	"coffee-backend/internal/cache"
	"coffee-backend/internal/config"
	"coffee-backend/internal/database"
	"coffee-backend/internal/db"
	"coffee-backend/internal/handlers"
	"coffee-backend/internal/health"
	h "coffee-backend/internal/http"
	"coffee-backend/internal/middleware"
	"coffee-backend/internal/monitoring"
	"coffee-backend/internal/repositories"
	"coffee-backend/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to PostgreSQL
	pool := db.Connect(cfg)
	defer pool.Close()

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (reports will be computed on every request)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Run database migrations
	log.Println("Running database migrations...")
	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize report archive uploader (optional - nil when disabled)
	uploader, err := archive.New(ctx, cfg)
	if err != nil {
		log.Printf("[Archive] Unavailable: %v (report archiving disabled)", err)
	}

	// Initialize health checker
	healthChecker := health.NewHealthChecker(pool)

	// Start monitoring dashboard server in background
	go monitoring.NewMonitoringServer(pool, cfg.Server.MonitoringPort).Start()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	farmerRepo := repositories.NewFarmerRepository(pool)
	deliveryRepo := repositories.NewDeliveryRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)

	// Initialize services
	userService := services.NewUserService(userRepo, jwtManager)
	totpService := services.NewTOTPService(userRepo)
	farmerService := services.NewFarmerService(farmerRepo)
	deliveryService := services.NewDeliveryService(deliveryRepo, farmerRepo, paymentRepo)
	paymentService := services.NewPaymentService(paymentRepo, deliveryRepo, farmerRepo, cfg)
	reconciliationService := services.NewReconciliationService(deliveryRepo, farmerRepo)
	analyticsService := services.NewAnalyticsService(farmerRepo, deliveryRepo, paymentRepo, cfg)
	reportService := services.NewReportService(farmerRepo, deliveryRepo, paymentRepo, uploader, cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, totpService, jwtManager)
	userHandler := handlers.NewUserHandler(userService)
	farmerHandler := handlers.NewFarmerHandler(farmerService)
	deliveryHandler := handlers.NewDeliveryHandler(deliveryService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	reportHandler := handlers.NewReportHandler(reportService)
	totpHandler := handlers.NewTOTPHandler(totpService, userService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	// Build router
	router := h.NewRouter(
		authHandler,
		userHandler,
		farmerHandler,
		deliveryHandler,
		paymentHandler,
		reconciliationHandler,
		analyticsHandler,
		reportHandler,
		totpHandler,
		healthHandler,
		authMiddleware,
	)

	// Wrap with panic recovery, metrics and CORS middleware
	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
