package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mockmate-backend/internal/app"
	"mockmate-backend/internal/config"
	"mockmate-backend/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.IsProduction())
	log := logger.L()
	log.Info("starting MockMate backend")

	application, cleanup, err := app.Build(cfg)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer cleanup()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     application.Router,
		ReadTimeout: 15 * time.Second,
		// Generation and transcription wait on the AI provider.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		application.Hub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("graceful shutdown incomplete")
		}
	}()

	log.WithField("port", cfg.Port).Infof("ready: API http://localhost:%s/api/v1, WS ws://localhost:%s/api/v1/ws", cfg.Port, cfg.Port)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server error")
	}
	<-done
}
