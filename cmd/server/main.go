package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/rs/cors"

	"github.com/credixa-git/crypto-app-be/internal/cache"
	"github.com/credixa-git/crypto-app-be/internal/config"
	"github.com/credixa-git/crypto-app-be/internal/database"
	"github.com/credixa-git/crypto-app-be/internal/handlers"
	"github.com/credixa-git/crypto-app-be/internal/logger"
	"github.com/credixa-git/crypto-app-be/internal/mailer"
	"github.com/credixa-git/crypto-app-be/internal/middleware"
	"github.com/credixa-git/crypto-app-be/internal/monitoring"
	"github.com/credixa-git/crypto-app-be/internal/repository"
	"github.com/credixa-git/crypto-app-be/internal/services/accrual"
	"github.com/credixa-git/crypto-app-be/internal/services/auth"
	"github.com/credixa-git/crypto-app-be/internal/services/kyc"
	"github.com/credixa-git/crypto-app-be/internal/services/notification"
	"github.com/credixa-git/crypto-app-be/internal/services/portfolio"
	"github.com/credixa-git/crypto-app-be/internal/services/settlement"
	"github.com/credixa-git/crypto-app-be/internal/services/wallet"
	"github.com/credixa-git/crypto-app-be/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	runAccrual := flag.Bool("run-accrual", false, "run one accrual batch and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sqlDB, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		appLogger.Fatalw("Failed to open database", "error", err.Error())
	}
	defer sqlDB.Close()

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := sqlDB.Ping(); err != nil {
		appLogger.Fatalw("Failed to connect to database", "error", err.Error())
	}

	db := database.New(sqlDB)

	// Repositories
	users := repository.NewUserRepository(db)
	portfolios := repository.NewPortfolioRepository(db)
	rateChanges := repository.NewRateChangeRepository(db)
	interest := repository.NewInterestRepository(db)
	transactions := repository.NewTransactionRepository(db)
	wallets := repository.NewWalletRepository(db)
	kycSubmissions := repository.NewKYCRepository(db)
	notifications := repository.NewNotificationRepository(db)

	metrics := monitoring.NewMetrics("crypto_app")
	metrics.StartMetricsCollection(30 * time.Second)

	accrualEngine := accrual.NewEngine(db, portfolios, interest, metrics, appLogger)

	// One-shot mode for external cron.
	if *runAccrual {
		report, err := accrualEngine.RunDailyAccrual(context.Background())
		if err != nil {
			appLogger.Fatalw("Accrual run failed", "error", err.Error())
		}
		json.NewEncoder(os.Stdout).Encode(report)
		return
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	otpStore := cache.NewOTPStore(redisClient, cfg.Auth.OTPExpiry)
	mail := mailer.New(cfg.SMTP)

	objectStore, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		appLogger.Fatalw("Failed to initialize object storage", "error", err.Error())
	}

	// Services
	authService := auth.NewService(users, otpStore, mail, appLogger)
	portfolioService := portfolio.NewService(portfolios, rateChanges, interest, appLogger)
	settlementService := settlement.NewService(db, transactions, portfolios, wallets, metrics, appLogger)
	kycService := kyc.NewService(kycSubmissions, objectStore, appLogger)
	walletService := wallet.NewService(wallets, objectStore, appLogger)
	notificationService := notification.NewService(notifications, objectStore, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	healthChecker := monitoring.NewHealthChecker(sqlDB, redisClient)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, authMiddleware)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	transactionHandler := handlers.NewTransactionHandler(settlementService, objectStore)
	walletHandler := handlers.NewWalletHandler(walletService, objectStore)
	kycHandler := handlers.NewKYCHandler(kycService, objectStore)
	notificationHandler := handlers.NewNotificationHandler(notificationService, objectStore)

	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.APIRateLimit(cfg.App.RateLimitRPS, cfg.App.RateLimitBurst))
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.App.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	router.Handle("/health", healthChecker.HTTPHandler()).Methods("GET")
	router.Handle("/metrics", metrics.MetricsHandler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/auth/verify-email", authHandler.VerifyEmail).Methods("POST")
	api.HandleFunc("/auth/forgot-password", authHandler.ForgotPassword).Methods("POST")
	api.HandleFunc("/auth/reset-password", authHandler.ResetPassword).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware.Authenticate)

	protected.HandleFunc("/portfolio", portfolioHandler.GetMyPortfolio).Methods("GET")
	protected.HandleFunc("/portfolio/interest-history", portfolioHandler.GetInterestHistory).Methods("GET")

	protected.HandleFunc("/transactions/deposit", transactionHandler.SubmitDeposit).Methods("POST")
	protected.HandleFunc("/transactions/withdraw", transactionHandler.SubmitWithdrawal).Methods("POST")
	protected.HandleFunc("/transactions", transactionHandler.GetMyTransactions).Methods("GET")

	protected.HandleFunc("/wallets", walletHandler.ListActiveWallets).Methods("GET")

	protected.HandleFunc("/kyc", kycHandler.Submit).Methods("POST")
	protected.HandleFunc("/kyc", kycHandler.GetMyKYC).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.List).Methods("GET")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMiddleware.Authenticate)
	admin.Use(func(next http.Handler) http.Handler {
		return authMiddleware.RequireRole("admin", next)
	})

	admin.HandleFunc("/users/{userId}/portfolio", portfolioHandler.GetUserPortfolio).Methods("GET")
	admin.HandleFunc("/users/{userId}/rate", portfolioHandler.ApplyRate).Methods("POST")
	admin.HandleFunc("/users/{userId}/kyc", kycHandler.ReviewSubmission).Methods("POST")

	admin.HandleFunc("/transactions", transactionHandler.ListTransactions).Methods("GET")
	admin.HandleFunc("/transactions/{id}", transactionHandler.GetTransaction).Methods("GET")
	admin.HandleFunc("/transactions/{id}/approve", transactionHandler.ApproveTransaction).Methods("POST")
	admin.HandleFunc("/transactions/{id}/reject", transactionHandler.RejectTransaction).Methods("POST")

	admin.HandleFunc("/wallets", walletHandler.ListAllWallets).Methods("GET")
	admin.HandleFunc("/wallets", walletHandler.CreateWallet).Methods("POST")
	admin.HandleFunc("/wallets/{id}", walletHandler.GetWallet).Methods("GET")
	admin.HandleFunc("/wallets/{id}", walletHandler.UpdateWallet).Methods("PUT")
	admin.HandleFunc("/wallets/{id}/active", walletHandler.SetWalletActive).Methods("PATCH")

	admin.HandleFunc("/kyc", kycHandler.ListSubmissions).Methods("GET")

	admin.HandleFunc("/notifications", notificationHandler.Create).Methods("POST")

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()

	if cfg.Accrual.Enabled {
		scheduler := accrual.NewScheduler(accrualEngine, appLogger)
		go func() {
			if err := scheduler.Start(schedulerCtx); err != nil && err != context.Canceled {
				appLogger.Errorw("Accrual scheduler stopped", "error", err.Error())
			}
		}()
	}

	go func() {
		appLogger.Infow("Server starting", "port", cfg.App.Port, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalw("Failed to start server", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Infow("Server shutting down")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatalw("Server forced to shutdown", "error", err.Error())
	}

	appLogger.Infow("Server stopped")
}
