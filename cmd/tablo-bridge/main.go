package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/tablo-labs/tablo-bridge/internal/config"
	"github.com/tablo-labs/tablo-bridge/internal/server"
	"github.com/tablo-labs/tablo-bridge/internal/service"
	"github.com/tablo-labs/tablo-bridge/internal/storage/bolt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	store, err := bolt.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer store.Close()

	authSvc := service.NewAuthService(cfg)
	setupSvc := service.NewSetupService(store, cfg, log)
	tuneSvc := service.NewTuneService(setupSvc, store, cfg, log)
	logSvc := service.NewTuneLogService(store)

	srv := server.New(cfg, setupSvc, tuneSvc, logSvc, authSvc, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// graceful shutdown
	waitForSignal()
	log.Info().Msg("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
