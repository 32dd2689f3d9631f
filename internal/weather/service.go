package weather

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// CurrentWeather issues one request for current conditions.
	// Failures are *FetchError values of kind ErrTransport or ErrServer.
	CurrentWeather(ctx context.Context, q Query) (*Result, error)

	// Name returns the provider name for logging.
	Name() string
}

// NetworkProbe reports whether a request can be sent at all.
type NetworkProbe interface {
	IsNetworkAvailable() bool
}

// Observer is notified of every provider call outcome.
type Observer interface {
	Observe(provider string, err error)
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Probe gates every fetch. Nil means the network is assumed available.
	Probe NetworkProbe

	// Observer receives call outcomes (optional).
	Observer Observer

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service is the weather client used by the pipeline: it checks
// connectivity, then performs exactly one provider call.
type Service struct {
	provider Provider
	probe    NetworkProbe
	observer Observer
	logger   zerolog.Logger
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		probe:    cfg.Probe,
		observer: cfg.Observer,
		logger:   cfg.Logger,
	}
}

// ProviderName returns the name of the configured provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// FetchWeather fetches current weather for q.
// When the probe reports no network it returns ErrNetworkUnreachable
// without calling the provider. No retry happens at this layer.
func (s *Service) FetchWeather(ctx context.Context, q Query) (*Result, error) {
	if err := validateCoordinates(q.Position); err != nil {
		return nil, err
	}

	if s.probe != nil && !s.probe.IsNetworkAvailable() {
		s.logger.Warn().Msg("no usable network, weather request not sent")
		return nil, &FetchError{Kind: ErrNetworkUnreachable}
	}

	if q.Units == "" {
		q.Units = UnitsMetric
	}

	s.logger.Debug().
		Float64("lat", q.Position.Latitude).
		Float64("lon", q.Position.Longitude).
		Str("units", string(q.Units)).
		Str("provider", s.provider.Name()).
		Msg("fetching weather from provider")

	start := time.Now()
	result, err := s.provider.CurrentWeather(ctx, q)
	if s.observer != nil {
		s.observer.Observe(s.provider.Name(), err)
	}
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			fetchErr = NewTransportError(err)
		}
		s.logger.Error().Err(fetchErr).
			Float64("lat", q.Position.Latitude).
			Float64("lon", q.Position.Longitude).
			Int("status", fetchErr.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("failed to fetch weather")
		return nil, fetchErr
	}

	s.logger.Debug().
		Str("location", result.LocationName).
		Dur("duration", time.Since(start)).
		Msg("weather fetched")

	return result, nil
}
