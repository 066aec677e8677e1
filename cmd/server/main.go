package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/testcraft-app/testcraft-service/internal/config"
	"github.com/testcraft-app/testcraft-service/internal/events"
	"github.com/testcraft-app/testcraft-service/internal/handlers"
	"github.com/testcraft-app/testcraft-service/internal/repositories/sqlite"
	"github.com/testcraft-app/testcraft-service/internal/services"
	"github.com/testcraft-app/testcraft-service/internal/utils"
	"github.com/testcraft-app/testcraft-service/internal/validator"
	"github.com/testcraft-app/testcraft-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	logger.Info("Starting testcraft service",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"database_path", cfg.DatabasePath)

	// Database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	// Event bus
	bus := events.NewBus(slogger)

	// Audit trail: record every session event regardless of whether a
	// WebSocket client is connected to receive it.
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	sessionEvents, err := bus.SubscribeSessionEvents(busCtx)
	if err != nil {
		logger.Error("Failed to subscribe to session events", "error", err)
		os.Exit(1)
	}
	go func() {
		for event := range sessionEvents {
			logger.Info("Session event",
				"type", event.Type,
				"session_id", event.SessionID,
				"event_id", event.ID)
		}
	}()

	// Wiring
	repo := sqlite.NewRepository(db)
	v := validator.New()
	serviceManager := services.NewServiceManager(repo, bus, slogger, v, cfg.SessionTick)
	handlerManager := handlers.NewHandlerManager(serviceManager, bus, v, logger, cfg.AllowedOrigins)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := bus.Close(); err != nil {
		logger.Error("Event bus shutdown error", "error", err)
	}

	logger.Info("Shutdown complete")
}
