package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hometownhq/hometown-backend/config"
	"github.com/hometownhq/hometown-backend/internal/app/controller"
	"github.com/hometownhq/hometown-backend/internal/app/repository"
	"github.com/hometownhq/hometown-backend/internal/app/service"
	"github.com/hometownhq/hometown-backend/internal/db"
	apperrors "github.com/hometownhq/hometown-backend/internal/errors"
	"github.com/hometownhq/hometown-backend/internal/middleware"
	"github.com/hometownhq/hometown-backend/internal/router"
	"github.com/hometownhq/hometown-backend/internal/scheduler"
	"github.com/hometownhq/hometown-backend/pkg/logger"
	"github.com/hometownhq/hometown-backend/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting HomeTown Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	resetRepo := repository.NewPasswordResetRepository(db.GetDB())

	// Mail transport (log-only stub without SMTP credentials)
	mail := mailer.New(cfg.SMTP)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.TokenExpiry)
	passwordResetService := service.NewPasswordResetService(resetRepo, userRepo, mail, service.PasswordResetOptions{
		BaseURL:            cfg.App.BaseURL,
		TokenTTL:           cfg.Reset.TokenTTL,
		InvalidatePrevious: cfg.Reset.InvalidatePrevious,
	})

	// Surface mail delivery outcomes to operators
	go func() {
		for outcome := range passwordResetService.MailOutcomes() {
			if outcome.Err != nil {
				logger.Error("Reset mail delivery failed", outcome.Err, map[string]interface{}{
					"code":  apperrors.InternalMailError,
					"email": outcome.Email,
					"at":    outcome.At,
				})
			} else {
				logger.Debug("Reset mail delivered", map[string]interface{}{
					"email": outcome.Email,
					"at":    outcome.At,
				})
			}
		}
	}()

	// Controllers and middleware
	authController := controller.NewAuthController(authService, passwordResetService)
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Background cleanup of dead reset tokens
	cleanupScheduler := scheduler.NewTokenCleanupScheduler(resetRepo)
	if err := cleanupScheduler.Start(); err != nil {
		logger.Fatal("Failed to start token cleanup scheduler", err)
	}
	defer cleanupScheduler.Stop()

	r := router.NewRouter(authController, authMiddleware, cfg)
	engine := r.Setup()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
