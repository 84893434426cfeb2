package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"opecours/internal/app"
	"opecours/internal/config"
	"opecours/internal/logger"
	"opecours/internal/server"
)

var version = "dev"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	if err := logger.Init(logger.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		RotationSize:   cfg.Logging.RotationSizeMB,
		RetentionDays:  cfg.Logging.RetentionDays,
		ServiceName:    "opecours",
		ServiceVersion: version,
	}); err != nil {
		log.Fatal().Err(err).Msg("logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("assemble app")
	}
	defer a.Close()

	if err := a.Scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: server.NewRouter(a.Repository, server.Options{
			RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Repository.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
}
