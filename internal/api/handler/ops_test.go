package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherapp/weatherapp/internal/api/handler"
	"github.com/weatherapp/weatherapp/internal/api/models"
	"github.com/weatherapp/weatherapp/internal/connectivity"
	"github.com/weatherapp/weatherapp/internal/provider/resilience"
)

type stubProbe struct{ available bool }

func (p stubProbe) IsNetworkAvailable() bool { return p.available }
func (p stubProbe) Mode() connectivity.Mode { return connectivity.ModeCapabilities }

func serve(fn http.HandlerFunc, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rec
}

func TestOps_HealthCheck(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsHandlerConfig{Version: "1.2.3", BuildTime: "today"})

	rec := serve(h.HealthCheck, "/v1/ops/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var health models.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "1.2.3", health.Details["version"])
	assert.Equal(t, "today", health.Details["buildTime"])
}

func TestOps_ReadinessCheck(t *testing.T) {
	ready := handler.NewOpsHandler(handler.OpsHandlerConfig{Probe: stubProbe{available: true}})
	assert.Equal(t, http.StatusOK, serve(ready.ReadinessCheck, "/v1/ops/ready").Code)

	offline := handler.NewOpsHandler(handler.OpsHandlerConfig{Probe: stubProbe{available: false}})
	rec := serve(offline.ReadinessCheck, "/v1/ops/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health models.Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, models.HealthStatusFail, health.Status)

	assert.Equal(t, http.StatusOK, serve(handler.NewOpsHandler(handler.OpsHandlerConfig{}).ReadinessCheck, "/v1/ops/ready").Code)
}

func TestOps_SystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Track(resilience.NewClient(resilience.DefaultClientConfig("openweathermap")))
	registry.Track(resilience.NewClient(resilience.DefaultClientConfig("ip-api")))
	registry.Observe("openweathermap", nil)
	registry.Observe("ip-api", errors.New("lookup failed"))

	h := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Registry: registry,
		Probe:    stubProbe{available: true},
	})

	rec := serve(h.SystemStatus, "/v1/ops/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Equal(t, models.NetworkStatus{Mode: "capabilities", Available: true}, status.Network)

	require.Len(t, status.Providers, 2)
	assert.Equal(t, "ip-api", status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	require.NotNil(t, status.Providers[0].Message)
	assert.Equal(t, "lookup failed", *status.Providers[0].Message)
	assert.NotNil(t, status.Providers[0].LastFailureAt)

	assert.Equal(t, "openweathermap", status.Providers[1].Provider)
	assert.NotNil(t, status.Providers[1].LastSuccessAt)
	assert.Nil(t, status.Providers[1].Message)
}

func TestOps_SystemStatus_Offline(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsHandlerConfig{Probe: stubProbe{available: false}})

	rec := serve(h.SystemStatus, "/v1/ops/status")

	var status models.SystemStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, models.HealthStatusFail, status.Status)
	assert.False(t, status.Network.Available)
	assert.Empty(t, status.Providers)
}
