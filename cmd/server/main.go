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

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/parlourpunch/internal/config"
	"github.com/prudhvinik1/parlourpunch/internal/database"
	"github.com/prudhvinik1/parlourpunch/internal/handlers"
	"github.com/prudhvinik1/parlourpunch/internal/realtime"
	"github.com/prudhvinik1/parlourpunch/internal/repositories"
	"github.com/prudhvinik1/parlourpunch/internal/services"
)

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "issue-token" {
		issueToken(cfg, os.Args[2:])
		return
	}

	logger := log.New(os.Stderr, "parlourpunch ", log.LstdFlags|log.Lmicroseconds)

	// Storage
	var (
		attendanceRepo repositories.AttendanceRepository
		employeeRepo   repositories.EmployeeRepository
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create postgres pool: %v", err)
		}
		defer postgresPool.Close()

		attendanceRepo = repositories.NewPostgresAttendanceRepository(postgresPool)
		employeeRepo = repositories.NewPostgresEmployeeRepository(postgresPool)
	default:
		log.Println("Using in-memory storage; attendance logs will not survive a restart")
		attendanceRepo = repositories.NewMemoryAttendanceRepository()
		employeeRepo = repositories.NewMemoryEmployeeRepository(repositories.DevEmployees()...)
	}

	// Fan-out: Redis when configured so several instances stay consistent.
	var (
		broker     realtime.Broker = realtime.NewLocalBroker()
		statusRepo repositories.StatusRepository
	)
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("Failed to create redis client: %v", err)
		}
		defer redisClient.Close()

		broker = realtime.NewRedisBroker(redisClient, logger)
		statusRepo = repositories.NewRedisStatusRepository(redisClient)
	}

	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry)
	attendanceService := services.NewAttendanceService(attendanceRepo, nil, services.AttendanceServiceOptions{
		StatusRepo:   statusRepo,
		DefaultLimit: cfg.DefaultLogLimit,
		MaxLimit:     cfg.MaxLogLimit,
		Logger:       logger,
	})

	hub := realtime.NewHub(broker, attendanceService, authService, realtime.HubOptions{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	attendanceService.SetPublisher(hub)

	if err := hub.Start(ctx); err != nil {
		log.Fatalf("Failed to start realtime hub: %v", err)
	}
	defer broker.Close()

	if err := attendanceService.RebuildStatusView(ctx); err != nil {
		log.Printf("Failed to rebuild status view: %v", err)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Attendance:     attendanceService,
		Employees:      employeeRepo,
		Verifier:       authService,
		Live:           hub,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Start Server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		server.Shutdown(shutdownCtx)
		stop()
	}()

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
