// Package app assembles the weather pipeline and its collaborators from
// configuration. Both binaries start here.
package app

import (
	"github.com/rs/zerolog"

	"github.com/weatherapp/weatherapp/internal/config"
	"github.com/weatherapp/weatherapp/internal/connectivity"
	"github.com/weatherapp/weatherapp/internal/location"
	"github.com/weatherapp/weatherapp/internal/pipeline"
	"github.com/weatherapp/weatherapp/internal/presenter"
	"github.com/weatherapp/weatherapp/internal/provider/resilience"
	"github.com/weatherapp/weatherapp/internal/telemetry"
	"github.com/weatherapp/weatherapp/internal/weather"
	"github.com/weatherapp/weatherapp/internal/weather/openweathermap"
)

// Options carries process-level collaborators that do not come from
// configuration.
type Options struct {
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics *telemetry.PipelineMetrics

	// Inspector overrides host interface inspection (optional).
	Inspector connectivity.Inspector

	// Presenter overrides the local-clock presenter (optional).
	Presenter *presenter.Presenter
}

// App holds the assembled components.
type App struct {
	Pipeline *pipeline.Pipeline
	Locator  *location.Provider
	Probe    *connectivity.Probe
	Registry *resilience.Registry

	ipSource   *location.IPSource
	permission location.PermissionChecker
	logger     zerolog.Logger
}

// New builds the pipeline described by cfg.
func New(cfg *config.Config, opts Options) *App {
	log := opts.Logger
	registry := resilience.NewRegistry()

	weatherHTTP := resilience.NewClient(resilience.ClientConfig{
		Name:       openweathermap.ProviderName,
		Timeout:    cfg.Weather.Timeout,
		MaxRetries: uint64(cfg.Weather.MaxRetries),
		Logger:     log,
	})
	registry.Track(weatherHTTP)

	ipHTTP := resilience.NewClient(resilience.ClientConfig{
		Name:    location.IPSourceName,
		Timeout: cfg.Weather.Timeout,
		Logger:  log,
	})
	registry.Track(ipHTTP)

	inspector := opts.Inspector
	if inspector == nil {
		inspector = connectivity.NewSystemInspector(connectivity.HostInterfaces)
	}
	probe := connectivity.NewProbe(inspector, cfg.Connectivity.Mode)

	svc := weather.NewService(weather.ServiceConfig{
		Provider: openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     cfg.Weather.APIKey.Unmask(),
			Units:      cfg.Weather.Units,
			BaseURL:    cfg.Weather.BaseURL,
			HTTPClient: weatherHTTP,
			Logger:     log,
		}),
		Probe:    probe,
		Observer: registry,
		Logger:   log,
	})

	ipSource := location.NewIPSource(location.IPSourceConfig{
		Enabled:    cfg.Location.IPLookup,
		BaseURL:    cfg.Location.IPBaseURL,
		HTTPClient: ipHTTP,
		Observer:   registry,
		Logger:     log,
	})

	granted := cfg.Location.PermissionGranted
	permission := location.PermissionFunc(func() bool { return granted })

	// A pinned position always wins, so the IP source is only consulted
	// when none is configured.
	sources := []location.Source{ipSource}
	if pos := cfg.Location.FixedPosition(); pos != nil {
		sources = []location.Source{location.NewFixedSource(pos, 0)}
	}

	locator := location.NewProvider(location.ProviderConfig{
		Sources:    sources,
		Permission: permission,
		Logger:     log,
	})

	p := pipeline.New(pipeline.Config{
		Locator:           locator,
		Weather:           svc,
		Presenter:         opts.Presenter,
		APIKey:            cfg.Weather.APIKey.Unmask(),
		Units:             cfg.Weather.Units,
		UnitsFollowLocale: cfg.Weather.UnitsFollowLocale,
		Accuracy:          location.AccuracyHigh,
		LocationTimeout:   cfg.Location.Timeout,
		Metrics:           opts.Metrics,
		Logger:            log,
	})

	return &App{
		Pipeline:   p,
		Locator:    locator,
		Probe:      probe,
		Registry:   registry,
		ipSource:   ipSource,
		permission: permission,
		logger:     log,
	}
}

// LocatorFor returns the locator for a remote caller. A public IP is
// geolocated directly; anything else falls back to the process locator.
func (a *App) LocatorFor(clientIP string) pipeline.Locator {
	if clientIP == "" || !a.ipSource.Enabled() {
		return a.Locator
	}
	return location.NewProvider(location.ProviderConfig{
		Sources:    []location.Source{a.ipSource.ForIP(clientIP)},
		Permission: a.permission,
		Logger:     a.logger,
	})
}
