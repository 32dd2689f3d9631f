package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherapp/weatherapp/internal/provider/resilience"
)

const (
	// IPSourceName identifies the IP geolocation client in health reports.
	IPSourceName = "ipgeo"

	// DefaultIPBaseURL is the ip-api.com endpoint.
	DefaultIPBaseURL = "http://ip-api.com"
)

// Observer is notified of every lookup outcome.
type Observer interface {
	Observe(provider string, err error)
}

// IPSourceConfig holds configuration for the IP geolocation backend.
type IPSourceConfig struct {
	// Enabled switches the backend on.
	Enabled bool

	// IP is the address to locate. Empty locates the caller's public IP.
	IP string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	// Observer receives lookup outcomes (optional).
	Observer Observer

	// Logger for lookup operations.
	Logger zerolog.Logger
}

// IPSource is a network backend that resolves a position from an IP
// address over HTTP.
type IPSource struct {
	enabled    bool
	ip         string
	baseURL    string
	httpClient *resilience.Client
	observer   Observer
	logger     zerolog.Logger
}

// NewIPSource creates a new IP geolocation backend.
func NewIPSource(cfg IPSourceConfig) *IPSource {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultIPBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(IPSourceName))
	}

	return &IPSource{
		enabled:    cfg.Enabled,
		ip:         cfg.IP,
		baseURL:    baseURL,
		httpClient: httpClient,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
	}
}

// ForIP returns a copy of the source locating ip.
func (s *IPSource) ForIP(ip string) *IPSource {
	clone := *s
	clone.ip = ip
	return &clone
}

// Backend implements Source.
func (s *IPSource) Backend() Backend { return BackendNetwork }

// Enabled implements Source.
func (s *IPSource) Enabled() bool { return s.enabled }

// RequestUpdates performs one lookup in the background. Removing the
// registration aborts the in-flight request.
func (s *IPSource) RequestUpdates(_ Accuracy, update UpdateFunc) (Registration, error) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := &cancelRegistration{cancel: cancel}

	go func() {
		defer cancel()
		pos, err := s.Lookup(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			update(Fix{}, err)
			return
		}
		update(Fix{Position: pos, Backend: BackendNetwork, At: time.Now()}, nil)
	}()

	return reg, nil
}

// Lookup resolves the configured IP to a position.
func (s *IPSource) Lookup(ctx context.Context) (GeoPosition, error) {
	pos, err := s.lookup(ctx)
	if s.observer != nil && !errors.Is(err, context.Canceled) {
		s.observer.Observe(IPSourceName, err)
	}
	return pos, err
}

func (s *IPSource) lookup(ctx context.Context) (GeoPosition, error) {
	endpoint := s.baseURL + "/json/" + url.PathEscape(s.ip) + "?fields=status,message,lat,lon"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return GeoPosition{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return GeoPosition{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GeoPosition{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return GeoPosition{}, fmt.Errorf("decoding response: %w", err)
	}
	if body.Status != "success" {
		return GeoPosition{}, fmt.Errorf("lookup failed: %s", body.Message)
	}

	s.logger.Debug().
		Str("ip", s.ip).
		Float64("lat", body.Lat).
		Float64("lon", body.Lon).
		Msg("ip geolocation resolved")

	return GeoPosition{Latitude: body.Lat, Longitude: body.Lon}, nil
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type cancelRegistration struct {
	cancel context.CancelFunc
}

// Remove implements Registration.
func (r *cancelRegistration) Remove() {
	r.cancel()
}
