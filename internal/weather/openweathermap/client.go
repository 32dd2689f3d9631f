package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/weatherapp/weatherapp/internal/provider/resilience"
	"github.com/weatherapp/weatherapp/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 1 << 20
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is used when a query carries no key of its own.
	APIKey string

	// Units is used when a query carries no unit system of its own.
	// Defaults to metric.
	Units weather.Units

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a single-attempt resilient client.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	units      weather.Units
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	units := cfg.Units
	if units == "" {
		units = weather.UnitsMetric
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		units:      units,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// CurrentWeather issues a single GET {base}/weather for q.
func (c *Client) CurrentWeather(ctx context.Context, q weather.Query) (*weather.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(q), http.NoBody)
	if err != nil {
		return nil, weather.NewTransportError(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, weather.NewTransportError(fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	// A failure status is a server failure even when its body is truncated.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if readErr != nil {
			cause = fmt.Errorf("reading response: %w", readErr)
		}
		return nil, weather.NewServerError(resp.StatusCode, errorMessage(body), cause)
	}
	if readErr != nil {
		return nil, weather.NewTransportError(fmt.Errorf("reading response: %w", readErr))
	}

	return decode(resp.StatusCode, body)
}

// requestURL builds the query string exactly as the API expects it.
func (c *Client) requestURL(q weather.Query) string {
	apiKey := q.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	units := q.Units
	if units == "" {
		units = c.units
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Position.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(q.Position.Longitude, 'f', -1, 64))
	params.Set("units", string(units))
	params.Set("appid", apiKey)

	return c.baseURL + "/weather?" + params.Encode()
}

// Decode parses a current-weather body. An empty or non-conforming body is
// an ErrServer failure.
func Decode(body []byte) (*weather.Result, error) {
	return decode(http.StatusOK, body)
}

func decode(status int, body []byte) (*weather.Result, error) {
	if len(body) == 0 {
		return nil, weather.NewServerError(status, "empty response body", nil)
	}

	var owmResp currentWeatherResponse
	if err := json.Unmarshal(body, &owmResp); err != nil {
		return nil, weather.NewServerError(status, "", fmt.Errorf("decoding response: %w", err))
	}
	if owmResp.Main == nil || owmResp.Sys == nil {
		return nil, weather.NewServerError(status, "", errors.New("decoding response: missing main or sys block"))
	}

	return toResult(&owmResp), nil
}

// toResult converts OpenWeatherMap response to domain model.
func toResult(resp *currentWeatherResponse) *weather.Result {
	result := &weather.Result{
		LocationName: resp.Name,
		Conditions:   make([]weather.Condition, 0, len(resp.Weather)),
		Temperature: weather.Temperature{
			Current:     resp.Main.Temp,
			FeelsLike:   resp.Main.FeelsLike,
			Min:         resp.Main.TempMin,
			Max:         resp.Main.TempMax,
			Pressure:    resp.Main.Pressure,
			Humidity:    resp.Main.Humidity,
			SeaLevel:    resp.Main.SeaLevel,
			GroundLevel: resp.Main.GrndLevel,
		},
		Wind: weather.Wind{Speed: resp.Wind.Speed},
		Sun: weather.Sun{
			Sunrise: resp.Sys.Sunrise,
			Sunset:  resp.Sys.Sunset,
		},
		VisibilityMeters: resp.Visibility,
	}

	for _, w := range resp.Weather {
		result.Conditions = append(result.Conditions, weather.Condition{
			Description: w.Description,
			IconCode:    w.Icon,
		})
	}

	return result
}

// errorMessage extracts the message from an OpenWeatherMap error body
// ({"cod":401,"message":"Invalid API key..."}).
func errorMessage(body []byte) string {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	return apiErr.Message
}

// OpenWeatherMap API response structures.

type currentWeatherResponse struct {
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
		SeaLevel  *int    `json:"sea_level"`
		GrndLevel *int    `json:"grnd_level"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys *struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Name string `json:"name"`
}

type errorResponse struct {
	Cod     json.RawMessage `json:"cod"`
	Message string          `json:"message"`
}
