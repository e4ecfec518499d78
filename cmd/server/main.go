package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corretoria/backend/internal/config"
	"github.com/corretoria/backend/internal/handler"
	appMiddleware "github.com/corretoria/backend/internal/middleware"
	"github.com/corretoria/backend/internal/quota"
	"github.com/corretoria/backend/internal/repository"
	"github.com/corretoria/backend/internal/service"
	"github.com/corretoria/backend/pkg/payment"
	"github.com/corretoria/backend/pkg/signature"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	db, err := repository.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := repository.RunMigrations(ctx, db); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Database connected & migrated")

	// Guest counters: shared Redis backend with per-process fallback.
	var redisClient *redis.Client
	var counters quota.CounterStore
	if cfg.RedisAddr != "" {
		redisClient, err = quota.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Printf("Redis not available: %v (guest limits fall back to per-process counters)", err)
		}
	}
	if redisClient != nil {
		counters = quota.NewRedisCounterStore(redisClient)
		defer redisClient.Close()
		log.Println("Redis connected")
	} else {
		counters = quota.NewMemoryCounterStore()
	}

	// Payment gateway
	var gateway payment.Gateway
	if cfg.UseMockGateway {
		log.Println("Using mock payment gateway")
		gateway = payment.NewMockGateway()
	} else {
		gateway = payment.NewMercadoPagoGateway(cfg.MPAccessToken)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, userRepo, profileRepo)
	if cfg.AdminPassword != "" {
		if err := authSvc.SeedAdmin(ctx); err != nil {
			log.Fatalf("Admin seed error: %v", err)
		}
	}

	activator := service.NewActivationService(subRepo, profileRepo, paymentRepo)
	linkerSvc := service.NewLinkerService(paymentRepo, subRepo, activator)
	paymentSvc := service.NewPaymentService(gateway, paymentRepo, activator)
	quotaSvc := service.NewQuotaService(usageRepo, profileRepo, counters, service.QuotaConfig{
		GuestDailyLimit:   cfg.GuestDailyLimit,
		GuestMonthlyLimit: cfg.GuestMonthlyLimit,
		OnBackendError:    service.FailPolicy(cfg.QuotaFailPolicy),
	})

	sigValidator := signature.NewValidator(cfg.MPWebhookSecret)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, linkerSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, linkerSvc)
	webhookHandler := handler.NewWebhookHandler(paymentSvc, sigValidator)
	usageHandler := handler.NewUsageHandler(quotaSvc)
	plansHandler := handler.NewPlansHandler()
	adminHandler := handler.NewAdminHandler(db, paymentRepo)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Public routes
	r.Get("/health", healthHandler.Check)
	r.Get("/api/plans", plansHandler.List)
	r.Post("/api/mercadopago/webhook", webhookHandler.HandleNotification)

	// Guest-or-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.OptionalAuth(authSvc))
		r.Post("/api/mercadopago/create-pix-payment", paymentHandler.CreatePix)
		r.Get("/api/mercadopago/payment-status/{id}", paymentHandler.Status)
		r.Post("/api/usage/consume", usageHandler.Consume)
	})

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)
		r.Get("/api/usage", usageHandler.Remaining)

		r.Post("/api/mercadopago/activate-pix-payment", paymentHandler.ManualActivate)
		r.Get("/api/mercadopago/link-guest-payment", paymentHandler.ListGuestPayments)
		r.Post("/api/mercadopago/link-guest-payment", paymentHandler.LinkGuestPayment)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Get("/api/admin/stats", adminHandler.GetStats)
			r.Post("/api/admin/reset-test-payment", adminHandler.ResetTestPayment)
		})
	})

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("CorretorIA backend listening at http://%s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
