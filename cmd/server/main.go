package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/SiwakornSitti/WebRTC-Signal-Server/internal/adapters/http"
	sig "github.com/SiwakornSitti/WebRTC-Signal-Server/internal/adapters/signal"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/config"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/monitoring"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/relay"
	"github.com/SiwakornSitti/WebRTC-Signal-Server/internal/relay/broadcast"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog before config.Load so it can already log.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.LogFile).Msg("cannot open log file")
		} else {
			defer f.Close()
			log.Logger = log.Output(zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr}, f))
		}
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.New("signal", registry)

	engine := relay.NewEngine(metrics)
	bcast := broadcast.NewManager()
	ctl := sig.NewController(cfg, engine, bcast, metrics)

	r := router.SetupRouter(ctx, cfg, ctl, registry)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Bool("tls", cfg.TLS.Enabled).Msg("signaling server started")
		var err error
		if cfg.TLS.Enabled {
			err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
