// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherapp/weatherapp/internal/connectivity"
	"github.com/weatherapp/weatherapp/internal/location"
	"github.com/weatherapp/weatherapp/internal/weather"
)

const (
	redactedPlaceholder = "***REDACTED***"
)

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString never prints or serializes its value. Call Unmask to read it.
type SecretString string

func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw value.
func (s SecretString) Unmask() string {
	return string(s)
}

// Config is populated once at startup and never modified.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development" validate:"required"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`

	// Locale used when a request does not carry one. Empty falls back to
	// LC_ALL / LANG in the CLI.
	DefaultLocale string `envconfig:"DEFAULT_LOCALE"`

	Weather       WeatherConfig
	Location      LocationConfig
	Connectivity  ConnectivityConfig
	Server        ServerConfig
	Observability ObservabilityConfig
}

// WeatherConfig configures the weather provider client.
type WeatherConfig struct {
	APIKey  SecretString  `envconfig:"OPENWEATHER_API_KEY" validate:"required"`
	BaseURL string        `envconfig:"WEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5" validate:"required,url"`
	Units   weather.Units `envconfig:"WEATHER_UNITS" default:"metric" validate:"oneof=metric imperial"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s" validate:"gt=0"`

	// MaxRetries is zero by default: exactly one request per fetch.
	MaxRetries int `envconfig:"WEATHER_MAX_RETRIES" default:"0" validate:"gte=0,lte=5"`

	UnitsFollowLocale bool `envconfig:"WEATHER_UNITS_FOLLOW_LOCALE" default:"false"`
}

// LocationConfig configures the location backends.
type LocationConfig struct {
	// Latitude and Longitude pin the GPS backend. Both or neither.
	Latitude  *float64 `envconfig:"LOCATION_LATITUDE" validate:"required_with=Longitude,omitempty,gte=-90,lte=90"`
	Longitude *float64 `envconfig:"LOCATION_LONGITUDE" validate:"required_with=Latitude,omitempty,gte=-180,lte=180"`

	PermissionGranted bool          `envconfig:"LOCATION_PERMISSION_GRANTED" default:"true"`
	IPLookup          bool          `envconfig:"LOCATION_IP_LOOKUP" default:"true"`
	IPBaseURL         string        `envconfig:"LOCATION_IP_BASE_URL" default:"http://ip-api.com" validate:"required,url"`
	Timeout           time.Duration `envconfig:"LOCATION_TIMEOUT" default:"30s" validate:"gte=0"`
}

// ConnectivityConfig selects the connectivity probe strategy.
type ConnectivityConfig struct {
	Mode connectivity.Mode `envconfig:"CONNECTIVITY_MODE" default:"capabilities" validate:"oneof=capabilities legacy"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               string        `envconfig:"APP_PORT" default:"8080" validate:"required,numeric"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60" validate:"gte=0"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`
	RequireTLS         bool          `envconfig:"REQUIRE_TLS" default:"false"`
	TrustProxyHeaders  bool          `envconfig:"TRUST_PROXY_HEADERS" default:"false"`
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	Enabled      bool    `envconfig:"OTEL_ENABLED" default:"false"`
	ServiceName  string  `envconfig:"OTEL_SERVICE_NAME" default:"weatherapp"`
	OTLPEndpoint string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	SampleRatio  float64 `envconfig:"OTEL_SAMPLE_RATIO" default:"1" validate:"gte=0,lte=1"`
}

// Level returns the configured zerolog level, or info when unparseable.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// FixedPosition returns the pinned device position, if one is configured.
func (c LocationConfig) FixedPosition() *location.GeoPosition {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &location.GeoPosition{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrParsing indicates an environment value could not be converted to
	// its target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrEnvFile indicates an env file exists but could not be read or parsed.
	ErrEnvFile ConfigErrorType = "ENV_FILE_INVALID"
)

// ConfigError is returned by Load.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
