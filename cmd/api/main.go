// Package main provides the entrypoint for the weather API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherapp/weatherapp/internal/api"
	"github.com/weatherapp/weatherapp/internal/api/handler"
	"github.com/weatherapp/weatherapp/internal/api/middleware"
	"github.com/weatherapp/weatherapp/internal/app"
	"github.com/weatherapp/weatherapp/internal/config"
	"github.com/weatherapp/weatherapp/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stderrLog := zerolog.New(os.Stderr)
		stderrLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	serviceName := cfg.Observability.ServiceName

	log := zerolog.New(os.Stdout).
		Level(cfg.Level()).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting weather API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		Enabled:        cfg.Observability.Enabled,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Observability.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Observability.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	pipelineMetrics, err := telemetry.NewPipelineMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize pipeline metrics")
		os.Exit(1)
	}

	a := app.New(cfg, app.Options{Logger: log, Metrics: pipelineMetrics})

	log.Info().
		Str("provider", a.Pipeline.ProviderName()).
		Str("connectivity_mode", string(a.Probe.Mode())).
		Bool("location_enabled", a.Locator.IsLocationServiceEnabled()).
		Msg("weather pipeline initialized")

	router := api.NewRouter(api.RouterConfig{
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		Ops: handler.OpsHandlerConfig{
			Version:   Version,
			BuildTime: BuildTime,
			Registry:  a.Registry,
			Probe:     a.Probe,
		},
		Weather: handler.WeatherHandlerConfig{
			Pipeline:      a.Pipeline,
			LocatorFor:    a.LocatorFor,
			DefaultLocale: cfg.DefaultLocale,
			Logger:        log,
		},
		RateLimit:         middleware.PerMinute(cfg.Server.RateLimitPerMinute),
		RequireTLS:        cfg.Server.RequireTLS,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Location.Timeout + cfg.Weather.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
