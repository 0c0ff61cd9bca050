package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/thawflow/internal/api"
	"github.com/andresuchdata/thawflow/internal/app"
	"github.com/andresuchdata/thawflow/internal/config"
	"github.com/andresuchdata/thawflow/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	router := api.NewRouter(&api.Services{
		Inventory: a.Inventory,
		Imports:   a.Imports,
	}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("backend", cfg.Database.Backend).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// in-flight daily runs get the write timeout to finish
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.WriteTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
