package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/etherlens/etherlens/internal/aggregate"
	"github.com/etherlens/etherlens/internal/cache"
	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/classify"
	"github.com/etherlens/etherlens/internal/config"
	"github.com/etherlens/etherlens/internal/explorer"
	"github.com/etherlens/etherlens/internal/inference"
	"github.com/etherlens/etherlens/internal/market"
	"github.com/etherlens/etherlens/internal/metrics"
	"github.com/etherlens/etherlens/internal/pipeline"
	"github.com/etherlens/etherlens/internal/scoring"
	"github.com/etherlens/etherlens/internal/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "etherlens").
		Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.General.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.General.LogFormat == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Str("environment", cfg.General.Environment).
		Str("listen_addr", cfg.Server.ListenAddr).
		Bool("inference_enabled", cfg.Inference.Enabled).
		Msg("Configuration loaded")

	// Providers
	chainClient := chain.NewLiveClient(cfg.ChainClientConfig())
	explorerClient := explorer.NewLiveClient(cfg.ExplorerClientConfig())
	marketClient := market.NewLiveClient(cfg.MarketClientConfig())

	var provider inference.Provider
	if cfg.Inference.Enabled && cfg.Inference.Endpoint != "" {
		provider = inference.NewHTTPProvider(cfg.InferenceProviderConfig())
	}

	// Pipeline stages
	m := metrics.New(prometheus.DefaultRegisterer)
	p := pipeline.New(
		cfg.PipelineOrchestratorConfig(),
		classify.New(chainClient),
		aggregate.New(cfg.AggregatorConfig(), chainClient, explorerClient, marketClient),
		scoring.New(cfg.ScoringEngineConfig(), provider),
		cache.New(cfg.ResultCacheConfig()),
		m,
	)

	srv := server.New(server.Config{
		ListenAddr:   cfg.Server.ListenAddr,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}, p, m)
	httpSrv := srv.HTTPServer()

	// Handle shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutMs)*time.Millisecond)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Shutdown complete")
}
