// Package main provides a terminal client that shows the current weather
// at the device's location.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherapp/weatherapp/internal/app"
	"github.com/weatherapp/weatherapp/internal/config"
	"github.com/weatherapp/weatherapp/internal/location"
	"github.com/weatherapp/weatherapp/internal/pipeline"
	"github.com/weatherapp/weatherapp/internal/telemetry"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		envFile = flag.String("env", ".env", "dotenv file applied before reading the environment")
		locale  = flag.String("locale", "", "locale used for units and labels (default: DEFAULT_LOCALE, LC_ALL or LANG)")
		lat     = flag.String("lat", "", "latitude; pins the device position together with -lon")
		lon     = flag.String("lon", "", "longitude; pins the device position together with -lat")
		asJSON  = flag.Bool("json", false, "print JSON instead of text")
		watch   = flag.Duration("watch", 0, "refresh at this interval until interrupted (0 runs once)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := pinPosition(cfg, *lat, *lon); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.Level()).
		With().
		Timestamp().
		Str("version", Version).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Observability.ServiceName + "-cli",
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		Enabled:        cfg.Observability.Enabled,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := telemetry.NewPipelineMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize pipeline metrics")
		return 1
	}

	a := app.New(cfg, app.Options{Logger: log, Metrics: metrics})
	sink := &pipeline.WriterSink{Out: os.Stdout, Errors: os.Stderr, JSON: *asJSON}
	loc := resolveLocale(*locale, cfg.DefaultLocale)

	log.Debug().
		Str("locale", loc).
		Str("connectivity_mode", string(a.Probe.Mode())).
		Msg("refreshing weather")

	if err := a.Pipeline.Refresh(ctx, loc, sink); err != nil && *watch <= 0 {
		return 1
	}
	if *watch <= 0 {
		return 0
	}

	ticker := time.NewTicker(*watch)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
			// A failed refresh only notifies; the last rendered block stays.
			_ = a.Pipeline.Refresh(ctx, loc, sink)
		}
	}
}

// pinPosition overrides the configured position from -lat/-lon.
func pinPosition(cfg *config.Config, lat, lon string) error {
	if lat == "" && lon == "" {
		return nil
	}
	if lat == "" || lon == "" {
		return fmt.Errorf("-lat and -lon must be given together")
	}
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return fmt.Errorf("invalid -lat: %w", err)
	}
	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return fmt.Errorf("invalid -lon: %w", err)
	}
	if !(location.GeoPosition{Latitude: latitude, Longitude: longitude}).Valid() {
		return fmt.Errorf("-lat/-lon out of range: %s,%s", lat, lon)
	}
	cfg.Location.Latitude = &latitude
	cfg.Location.Longitude = &longitude
	return nil
}

// resolveLocale picks the first non-empty of the flag, the configured
// default, LC_ALL and LANG.
func resolveLocale(candidates ...string) string {
	candidates = append(candidates, os.Getenv("LC_ALL"), os.Getenv("LANG"))
	for _, c := range candidates {
		if c != "" && c != "C" && c != "POSIX" {
			return c
		}
	}
	return ""
}
