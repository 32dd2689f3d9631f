package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherapp/weatherapp/internal/api"
	"github.com/weatherapp/weatherapp/internal/api/handler"
	"github.com/weatherapp/weatherapp/internal/api/middleware"
	"github.com/weatherapp/weatherapp/internal/api/models"
	"github.com/weatherapp/weatherapp/internal/connectivity"
	"github.com/weatherapp/weatherapp/internal/location"
	"github.com/weatherapp/weatherapp/internal/pipeline"
	"github.com/weatherapp/weatherapp/internal/presenter"
	"github.com/weatherapp/weatherapp/internal/provider/resilience"
	"github.com/weatherapp/weatherapp/internal/weather"
	"github.com/weatherapp/weatherapp/internal/weather/openweathermap"
)

const testvilleBody = `{"name":"Testville","weather":[{"description":"clear sky","icon":"01d"}],"main":{"temp":20,"feels_like":19,"temp_min":18,"temp_max":22,"pressure":1012,"humidity":50},"wind":{"speed":5},"sys":{"sunrise":1600000000,"sunset":1600030000},"visibility":10000}`

// newTestRouter wires the real stack against a fake upstream.
func newTestRouter(t *testing.T, rateLimit int, opts ...func(*api.RouterConfig)) (http.Handler, *resilience.Registry) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		_, _ = w.Write([]byte(testvilleBody))
	}))
	t.Cleanup(upstream.Close)

	registry := resilience.NewRegistry()
	weatherHTTP := resilience.NewClient(resilience.DefaultClientConfig(openweathermap.ProviderName))
	registry.Track(weatherHTTP)

	probe := connectivity.NewProbe(connectivity.AlwaysAvailable{}, connectivity.ModeCapabilities)
	svc := weather.NewService(weather.ServiceConfig{
		Provider: openweathermap.NewClient(openweathermap.ClientConfig{BaseURL: upstream.URL, HTTPClient: weatherHTTP}),
		Probe:    probe,
		Observer: registry,
	})

	p := pipeline.New(pipeline.Config{
		Locator: location.NewProvider(location.ProviderConfig{
			Sources:    []location.Source{location.NewFixedSource(&location.GeoPosition{Latitude: 52.37, Longitude: 4.89}, 0)},
			Permission: location.Granted,
		}),
		Weather:   svc,
		Presenter: presenter.New(time.UTC),
		APIKey:    "test-key",
	})

	cfg := api.RouterConfig{
		Logger:    zerolog.Nop(),
		Ops:       handler.OpsHandlerConfig{Version: "test", Registry: registry, Probe: probe},
		Weather:   handler.WeatherHandlerConfig{Pipeline: p, DefaultLocale: "en-GB"},
		RateLimit: middleware.PerMinute(rateLimit),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return api.NewRouter(cfg), registry
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	for _, path := range []string{"/v1/ops/health", "/v1/ops/ready", "/v1/ops/status"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader), path)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), path)
	}
}

func TestRouter_Weather(t *testing.T) {
	router, registry := newTestRouter(t, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.WeatherResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "openweathermap", body.Provider)
	assert.Equal(t, "GB", body.Region)
	assert.Equal(t, "Testville", body.Weather.Location)
	assert.Equal(t, "20.0°C", body.Weather.Temperature)
	assert.Equal(t, "5.0 miles/hour", body.Weather.Wind)

	health, ok := registry.Health(openweathermap.ProviderName)
	require.True(t, ok)
	assert.NotNil(t, health.LastSuccessAt)
}

func TestRouter_WeatherRateLimited(t *testing.T) {
	router, _ := newTestRouter(t, 1)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/weather?lat=1&lon=2", http.NoBody))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/weather?lat=1&lon=2", http.NoBody))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))
	assert.Equal(t, http.StatusOK, health.Code, "ops endpoints are not rate limited")
}

func TestRouter_ForwardedForTrust(t *testing.T) {
	forwardedFrom := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/v1/weather?lat=1&lon=2", http.NoBody)
		req.RemoteAddr = "198.51.100.10:4000"
		req.Header.Set("X-Forwarded-For", ip)
		return req
	}

	t.Run("ignored by default", func(t *testing.T) {
		router, _ := newTestRouter(t, 1)

		first := httptest.NewRecorder()
		router.ServeHTTP(first, forwardedFrom("203.0.113.1"))
		require.Equal(t, http.StatusOK, first.Code)

		second := httptest.NewRecorder()
		router.ServeHTTP(second, forwardedFrom("203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, second.Code, "rotating the header must not reset the limit")
	})

	t.Run("honored when trusted", func(t *testing.T) {
		router, _ := newTestRouter(t, 1, func(cfg *api.RouterConfig) {
			cfg.TrustProxyHeaders = true
		})

		first := httptest.NewRecorder()
		router.ServeHTTP(first, forwardedFrom("203.0.113.1"))
		require.Equal(t, http.StatusOK, first.Code)

		second := httptest.NewRecorder()
		router.ServeHTTP(second, forwardedFrom("203.0.113.2"))
		assert.Equal(t, http.StatusOK, second.Code)
	})
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nope", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/weather", http.NoBody))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var problem models.Problem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, models.ProblemTypeMethodNotAllowed, problem.Type)
}

func TestRouter_RequireTLS(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{
		Logger:     zerolog.Nop(),
		RequireTLS: true,
		Weather:    handler.WeatherHandlerConfig{Pipeline: pipeline.New(pipeline.Config{})},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Forwarded-Proto", "http")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
