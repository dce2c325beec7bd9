// File: app/app.go
package app

import (
	"context"
	"go-auth-api/config"
	"go-auth-api/db"
	"go-auth-api/handler"
	"go-auth-api/logger"
	"go-auth-api/repository"
	"go-auth-api/router"
	"go-auth-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	redisClient, err := db.ConnectRedis()
	if err != nil {
		logger.Log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	// --- Wiring All Layers Together ---
	cfg := config.AppConfig
	accessTTL := time.Duration(cfg.JWT.AccessTTLMinutes) * time.Minute
	refreshTTL := time.Duration(cfg.JWT.RefreshTTLDays) * 24 * time.Hour
	idleTTL := time.Duration(cfg.Session.IdleTimeoutMinutes) * time.Minute

	userRepo := repository.NewUserRepository(database)
	codec := service.NewTokenCodec(cfg.JWT.SecretKey, accessTTL)
	authService := service.NewAuthService(userRepo, codec, service.LogNotifier{}, refreshTTL)
	sessionCache := service.NewSessionCache(redisClient, idleTTL)
	authHandler := handler.NewAuthHandler(authService, sessionCache)

	r := router.NewRouter(authHandler, codec, sessionCache, authService)

	// --- Start the Server with Graceful Shutdown ---
	port := cfg.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}
