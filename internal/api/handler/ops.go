// Package handler provides HTTP handlers for the weather API.
package handler

import (
	"net/http"
	"time"

	"github.com/weatherapp/weatherapp/internal/api/models"
	"github.com/weatherapp/weatherapp/internal/api/response"
	"github.com/weatherapp/weatherapp/internal/connectivity"
	"github.com/weatherapp/weatherapp/internal/provider/resilience"
)

// NetworkProbe reports host connectivity.
type NetworkProbe interface {
	IsNetworkAvailable() bool
	Mode() connectivity.Mode
}

// OpsHandlerConfig holds the ops handler dependencies.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string

	// Registry and Probe are optional; without them the service always
	// reports itself healthy.
	Registry *resilience.Registry
	Probe    NetworkProbe
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	probe     NetworkProbe
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		probe:     cfg.Probe,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Not ready while the host has
// no usable network, since every weather request would fail.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
	}

	if h.probe != nil && !h.probe.IsNetworkAvailable() {
		health.Status = models.HealthStatusFail
		health.Details = map[string]interface{}{"network": "unavailable"}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}

	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - network and upstream provider
// status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.now()),
		Network:   models.NetworkStatus{Available: true},
		Providers: []models.ProviderStatus{},
	}

	if h.probe != nil {
		status.Network = models.NetworkStatus{
			Mode:      string(h.probe.Mode()),
			Available: h.probe.IsNetworkAvailable(),
		}
		if !status.Network.Available {
			status.Status = models.HealthStatusFail
		}
	}

	for _, ph := range h.registry.Snapshot() {
		ps := providerStatus(ph)
		status.Providers = append(status.Providers, ps)
		status.Status = worse(status.Status, ps.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(ph resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:      ph.Name,
		CircuitState:  ph.CircuitState.String(),
		LastSuccessAt: models.TimestampPtr(ph.LastSuccessAt),
		LastFailureAt: models.TimestampPtr(ph.LastFailureAt),
	}
	switch {
	case ph.Healthy():
		ps.Status = models.HealthStatusOK
	case ph.Degraded():
		ps.Status = models.HealthStatusDegraded
	default:
		ps.Status = models.HealthStatusFail
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}

func worse(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
