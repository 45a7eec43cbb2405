package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fastticket/internal/api"
	"fastticket/internal/config"
	"fastticket/internal/logger"
)

func main() {
	cfg := config.LoadEvents()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	server, err := api.NewEventsServer(cfg)
	if err != nil {
		logger.Fatal("Failed to create events server", "error", err)
	}

	loopCtx, cancelLoops := context.WithCancel(context.Background())
	defer cancelLoops()

	if err := server.Start(loopCtx); err != nil {
		logger.Fatal("Failed to start background loops", "error", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.GetRouter(),
	}

	go func() {
		log.Info("Starting events service", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down events service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	cancelLoops()
	if err := server.Cleanup(); err != nil {
		log.Error("Error during cleanup", "error", err)
	}

	log.Info("Events service stopped")
}
