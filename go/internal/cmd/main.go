package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/faceoff/go/internal/dbconfig"
	"github.com/mcdev12/faceoff/go/internal/gateway"
	"github.com/mcdev12/faceoff/go/internal/outbox"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	dbCfg := dbconfig.NewConfigFromEnv()
	database, err := setupDatabase(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup database")
	}
	defer database.Close()

	services := setupServices(database, cfg)

	// Outbox relay: committed rows go out through JetStream
	pubCfg := outbox.DefaultPublisherConfig()
	pubCfg.URL = cfg.NATS.URL
	publisher, err := outbox.NewNATSPublisher(pubCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close publisher")
		}
	}()

	ltCfg := outbox.DefaultListenerConfig()
	ltCfg.DatabaseURL = dbCfg.DSN()
	ltCfg.FallbackInterval = cfg.Outbox.FallbackInterval
	ltCfg.BatchSize = cfg.Outbox.BatchSize
	metrics := outbox.NewLogMetricsCollector()
	listener, err := outbox.NewListener(services.OutboxRepo,
		outbox.NewMetricPublisher(publisher, metrics), metrics, ltCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}

	// Gateway: WebSocket fanout and the snapshot API
	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.JetStreamConfig.URL = cfg.NATS.URL
	gatewayService, err := gateway.NewService(gatewayCfg, services.StateProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	server := setupServer(services, gatewayService, cfg)

	// signal-aware context
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Msg("starting outbox listener")
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox listener exited")
		}
	}()

	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Msg("starting deadline sweeper")
		if err := services.Sweeper.Run(ctx); err != nil {
			log.Error().Err(err).Msg("deadline sweeper exited")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Give background services time to clean up
	time.Sleep(1 * time.Second)

	log.Info().Msg("faceoff server shutdown complete")
}
