// Package pipeline runs one weather acquisition cycle: locate, gate on
// connectivity, fetch, format.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/weatherapp/weatherapp/internal/location"
	"github.com/weatherapp/weatherapp/internal/presenter"
	"github.com/weatherapp/weatherapp/internal/telemetry"
	"github.com/weatherapp/weatherapp/internal/weather"
)

const tracerName = "github.com/weatherapp/weatherapp/internal/pipeline"

// Locator yields a single position.
type Locator interface {
	CurrentPosition(ctx context.Context, accuracy location.Accuracy) (location.GeoPosition, error)
}

// WeatherFetcher performs one connectivity-gated weather fetch.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, q weather.Query) (*weather.Result, error)
	ProviderName() string
}

// Sink receives the outcome of Refresh. Exactly one of its methods is
// called per cycle.
type Sink interface {
	Render(fields presenter.DisplayFields)
	Notify(notice Notice)
}

// Config holds the pipeline collaborators.
type Config struct {
	Locator   Locator
	Weather   WeatherFetcher
	Presenter *presenter.Presenter

	// APIKey and Units are copied into every query.
	APIKey string
	Units  weather.Units

	// UnitsFollowLocale queries imperial values for Fahrenheit regions so
	// the displayed suffix matches the numbers.
	UnitsFollowLocale bool

	// Accuracy requested from the locator. Defaults to high.
	Accuracy location.Accuracy

	// LocationTimeout bounds the wait for a fix. Zero waits for ctx.
	LocationTimeout time.Duration

	// Metrics and Tracer are optional.
	Metrics *telemetry.PipelineMetrics
	Tracer  trace.Tracer

	Logger zerolog.Logger
}

// Pipeline is safe for concurrent use; each Run owns its own data.
type Pipeline struct {
	locator           Locator
	weather           WeatherFetcher
	presenter         *presenter.Presenter
	apiKey            string
	units             weather.Units
	unitsFollowLocale bool
	accuracy          location.Accuracy
	locationTimeout   time.Duration
	metrics           *telemetry.PipelineMetrics
	tracer            trace.Tracer
	logger            zerolog.Logger
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		locator:           cfg.Locator,
		weather:           cfg.Weather,
		presenter:         cfg.Presenter,
		apiKey:            cfg.APIKey,
		units:             cfg.Units,
		unitsFollowLocale: cfg.UnitsFollowLocale,
		accuracy:          cfg.Accuracy,
		locationTimeout:   cfg.LocationTimeout,
		metrics:           cfg.Metrics,
		tracer:            cfg.Tracer,
		logger:            cfg.Logger,
	}
	if p.presenter == nil {
		p.presenter = presenter.New(nil)
	}
	if p.units == "" {
		p.units = weather.UnitsMetric
	}
	if p.tracer == nil {
		p.tracer = telemetry.Tracer(tracerName)
	}
	return p
}

// WithLocator returns a copy of the pipeline that locates through l.
func (p *Pipeline) WithLocator(l Locator) *Pipeline {
	clone := *p
	clone.locator = l
	return &clone
}

// Run locates the device and returns formatted weather for it.
func (p *Pipeline) Run(ctx context.Context, locale string) (*presenter.DisplayFields, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	pos, err := p.locate(ctx)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	fields, err := p.weatherAt(ctx, pos, locale)
	endSpan(span, err)
	return fields, err
}

// RunAt skips location and returns formatted weather for pos.
func (p *Pipeline) RunAt(ctx context.Context, pos location.GeoPosition, locale string) (*presenter.DisplayFields, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.RunAt")
	defer span.End()

	fields, err := p.weatherAt(ctx, pos, locale)
	endSpan(span, err)
	return fields, err
}

// Refresh runs one cycle and reports it to sink. On failure only Notify
// is called, so the previously rendered state stays untouched.
func (p *Pipeline) Refresh(ctx context.Context, locale string, sink Sink) error {
	fields, err := p.Run(ctx, locale)
	if err != nil {
		sink.Notify(NoticeFor(err))
		return err
	}
	sink.Render(*fields)
	return nil
}

func (p *Pipeline) locate(ctx context.Context) (location.GeoPosition, error) {
	ctx, span := p.tracer.Start(ctx, "location.CurrentPosition")
	defer span.End()

	if p.locationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.locationTimeout)
		defer cancel()
	}

	start := time.Now()
	pos, err := p.locator.CurrentPosition(ctx, p.accuracy)
	p.metrics.RecordLocationFix(ctx, time.Since(start), Kind(err))
	if err != nil {
		p.logger.Warn().Err(err).Str("kind", Kind(err)).Msg("location fix failed")
		endSpan(span, err)
		return location.GeoPosition{}, err
	}

	p.logger.Debug().
		Float64("lat", pos.Latitude).
		Float64("lon", pos.Longitude).
		Dur("duration", time.Since(start)).
		Msg("location fix acquired")

	return pos, nil
}

func (p *Pipeline) weatherAt(ctx context.Context, pos location.GeoPosition, locale string) (*presenter.DisplayFields, error) {
	region := presenter.RegionFromLocale(locale)
	q := weather.Query{
		Position: pos,
		Units:    p.UnitsFor(region),
		APIKey:   p.apiKey,
	}

	ctx, span := p.tracer.Start(ctx, "weather.FetchWeather", trace.WithAttributes(
		attribute.String("provider.name", p.weather.ProviderName()),
		attribute.String("weather.units", string(q.Units)),
	))
	defer span.End()

	start := time.Now()
	result, err := p.weather.FetchWeather(ctx, q)
	p.metrics.RecordFetch(ctx, p.weather.ProviderName(), time.Since(start), Kind(err))
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	fields := p.presenter.Format(result, region)
	return &fields, nil
}

// ProviderName names the weather provider behind the pipeline.
func (p *Pipeline) ProviderName() string {
	return p.weather.ProviderName()
}

// UnitsFor returns the unit system queried for region.
func (p *Pipeline) UnitsFor(region string) weather.Units {
	if p.unitsFollowLocale && presenter.UsesFahrenheit(region) {
		return weather.UnitsImperial
	}
	return p.units
}

func endSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, Kind(err))
}
