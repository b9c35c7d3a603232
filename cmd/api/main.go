package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/corebank/ledger-service/internal/audit"
	"github.com/corebank/ledger-service/internal/config"
	"github.com/corebank/ledger-service/internal/handler"
	"github.com/corebank/ledger-service/internal/ledger"
	"github.com/corebank/ledger-service/internal/middleware"
	"github.com/corebank/ledger-service/internal/notify"
	"github.com/corebank/ledger-service/internal/repository"
	"github.com/corebank/ledger-service/internal/service"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded environment from .env")
	}
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	var (
		repo  ledger.Repository
		users service.UserStore
	)
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		repo = repository.NewPostgres(db)
		users = repository.NewPostgresUsers(db)
	default:
		repo = repository.NewMemory()
		users = repository.NewMemoryUsers()
	}

	// Initialize layers
	engine := ledger.NewEngine(repo, logger)
	if cfg.NotifyEmail != "" && cfg.NotifyThreshold.Sign() > 0 {
		engine = engine.WithNotifier(notify.NewSender(cfg, logger), cfg.NotifyThreshold)
	}
	auth := service.NewAuth(users, logger, cfg.JWTSecret)
	h := handler.NewHandler(engine, auth, logger)

	// Scheduled ledger audit
	if cfg.AuditSchedule != "" {
		auditor := audit.NewAuditor(repo, logger)
		c, err := auditor.Schedule(cfg.AuditSchedule)
		if err != nil {
			logger.Fatalf("Failed to schedule ledger audit: %v", err)
		}
		defer c.Stop()
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	// Public routes
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	authRouter.HandleFunc("/accounts/{accountNumber}/deposit", h.Deposit).Methods("POST")
	authRouter.HandleFunc("/accounts/{accountNumber}/withdraw", h.Withdraw).Methods("POST")
	authRouter.HandleFunc("/accounts/{accountNumber}/balance", h.GetBalance).Methods("GET")
	authRouter.HandleFunc("/accounts/{accountNumber}/transactions", h.GetTransactions).Methods("GET")
	authRouter.HandleFunc("/transfer", h.Transfer).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s (backend: %s)", addr, cfg.StorageBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
