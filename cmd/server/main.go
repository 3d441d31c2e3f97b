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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/VoiceCall/internal/adapters/http"
	wsignal "github.com/dkeye/VoiceCall/internal/adapters/signal"
	"github.com/dkeye/VoiceCall/internal/app"
	"github.com/dkeye/VoiceCall/internal/app/orch"
	"github.com/dkeye/VoiceCall/internal/config"
	"github.com/dkeye/VoiceCall/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger first so config loading can log.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, v, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	// Only the log level is applied live; everything else needs a restart.
	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		config.Watch(v, func(next *config.Config) {
			zerolog.SetGlobalLevel(next.Level())
			log.Info().Str("level", next.Level().String()).Msg("log level updated")
		})
	}

	m := metrics.New()
	hub := wsignal.NewHub(app.PolicyByName(cfg.Backpressure), m)
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Gateway:  hub,
		Limiter:  app.NewCallRateLimiter(cfg.CallRate.Limit, cfg.CallRate.Interval),
		Metrics:  m,
	}

	r := router.SetupRouter(ctx, cfg, o, hub, m)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("backpressure", cfg.Backpressure).Msg("VoiceCall signaling server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	hub.CloseAll()
	log.Info().Msg("Server exited gracefully")
}
