package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of an upstream provider.
type ProviderHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Healthy reports whether the breaker is closed.
func (h ProviderHealth) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// Degraded reports whether the breaker is probing (half-open).
func (h ProviderHealth) Degraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// Registry tracks the upstream clients of a process (the weather API and
// the IP geolocation service) and the outcome of their latest calls.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Track registers a client under its configured name.
func (r *Registry) Track(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[client.Name()] = &registryEntry{client: client}
}

// Observe records the outcome of a call made through the named client.
// Unknown names are ignored.
func (r *Registry) Observe(name string, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	now := time.Now()
	if err != nil {
		e.lastFailureAt = &now
		e.lastError = err.Error()
		return
	}
	e.lastSuccessAt = &now
}

// Health returns the health of one provider.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return e.snapshot(name), true
}

// Snapshot returns the health of every tracked provider, ordered by name.
// A nil registry tracks nothing.
func (r *Registry) Snapshot() []ProviderHealth {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.snapshot(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *registryEntry) snapshot(name string) ProviderHealth {
	return ProviderHealth{
		Name:          name,
		CircuitState:  e.client.CircuitBreakerState(),
		Counts:        e.client.CircuitBreakerCounts(),
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
