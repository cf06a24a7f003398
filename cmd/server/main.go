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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prudhvinik1/eventrelay/internal/config"
	"github.com/prudhvinik1/eventrelay/internal/database"
	"github.com/prudhvinik1/eventrelay/internal/handlers"
	"github.com/prudhvinik1/eventrelay/internal/hub"
	"github.com/prudhvinik1/eventrelay/internal/metrics"
	"github.com/prudhvinik1/eventrelay/internal/repositories"
	"github.com/prudhvinik1/eventrelay/internal/services"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Repositories
	accountRepo := repositories.NewPostgresAccountRepository(postgresPool)
	deviceRepo := repositories.NewPostgresDeviceRepository(postgresPool)
	sessionRepo := repositories.NewRedisSessionRepository(redisClient)
	eventLogRepo := repositories.NewPostgresEventLogRepository(postgresPool)
	cleanupRepo := repositories.NewPostgresCleanupRepository(postgresPool)
	cursorRepo := repositories.NewRedisCursorRepository(redisClient)
	presenceRepo := repositories.NewRedisPresenceRepository(redisClient, cfg.PresenceTTL)

	// Services and fan-out
	m := metrics.New()
	authService := services.NewAuthService(accountRepo, deviceRepo, sessionRepo, cfg.JWTSecret, cfg.JWTExpiry)
	connHub := hub.NewHub(m)
	publisher := services.NewPublisher(eventLogRepo, connHub, cfg.EventLogMaxLength, m)
	wsHandler := hub.NewHandler(
		connHub,
		authService,
		publisher,
		eventLogRepo,
		cursorRepo,
		presenceRepo,
		cleanupRepo,
		m,
		cfg.ReplayBatchSize,
		cfg.WriteTimeout,
	)
	httpHandler := handlers.NewHandler(authService, publisher, cleanupRepo, deviceRepo, presenceRepo)

	// Initialize HTTP Server
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/ws", wsHandler.ServeWS)
	httpHandler.Routes(router)

	// Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
