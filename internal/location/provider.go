package location

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// UpdateFunc receives either a fix or a backend failure.
type UpdateFunc func(fix Fix, err error)

// Registration is an active update subscription on a backend.
type Registration interface {
	// Remove unregisters the subscription. Safe to call more than once.
	Remove()
}

// Source is a location backend.
type Source interface {
	Backend() Backend

	// Enabled reports whether the backend is switched on.
	Enabled() bool

	// RequestUpdates subscribes to position updates. The source may call
	// update from any goroutine, including before RequestUpdates returns.
	// A failure is reported at most once per registration and ends it.
	RequestUpdates(accuracy Accuracy, update UpdateFunc) (Registration, error)
}

// PermissionChecker reports whether location permission is held.
type PermissionChecker interface {
	LocationPermitted() bool
}

// PermissionFunc adapts a function to PermissionChecker.
type PermissionFunc func() bool

// LocationPermitted implements PermissionChecker.
func (f PermissionFunc) LocationPermitted() bool { return f() }

// Granted always permits location access.
var Granted = PermissionFunc(func() bool { return true })

// ProviderConfig holds configuration for the location provider.
type ProviderConfig struct {
	// Sources are the available backends.
	Sources []Source

	// Permission is checked on every request. Nil denies.
	Permission PermissionChecker

	// Logger for provider operations.
	Logger zerolog.Logger
}

// Provider fuses the enabled backends into one-shot position requests.
type Provider struct {
	sources    []Source
	permission PermissionChecker
	logger     zerolog.Logger
}

// NewProvider creates a new location provider.
func NewProvider(cfg ProviderConfig) *Provider {
	return &Provider{
		sources:    cfg.Sources,
		permission: cfg.Permission,
		logger:     cfg.Logger,
	}
}

// IsLocationServiceEnabled reports whether at least one of the GPS or
// network backends is enabled.
func (p *Provider) IsLocationServiceEnabled() bool {
	return len(p.enabledSources()) > 0
}

func (p *Provider) enabledSources() []Source {
	var enabled []Source
	for _, s := range p.sources {
		if s == nil || !s.Enabled() {
			continue
		}
		if b := s.Backend(); b == BackendGPS || b == BackendNetwork {
			enabled = append(enabled, s)
		}
	}
	return enabled
}

// GetCurrentPosition registers a one-shot update subscription on every
// enabled backend and returns a handle resolving with the first fix.
// All registrations are removed once the request resolves or is canceled.
func (p *Provider) GetCurrentPosition(accuracy Accuracy) (*Request, error) {
	if p.permission == nil || !p.permission.LocationPermitted() {
		return nil, ErrPermissionDenied
	}

	sources := p.enabledSources()
	if len(sources) == 0 {
		return nil, ErrLocationServiceDisabled
	}

	req := newRequest(p.logger)
	registered := 0
	var lastErr error
	for _, src := range sources {
		backend := src.Backend()
		reg, err := src.RequestUpdates(accuracy, req.updateFrom(backend))
		if err != nil {
			lastErr = err
			p.logger.Warn().Err(err).
				Str("backend", string(backend)).
				Msg("failed to register for location updates")
			continue
		}
		registered++
		req.addRegistration(reg)
	}

	if registered == 0 {
		return nil, fmt.Errorf("%w: %w", ErrLocationUnavailable, lastErr)
	}
	req.arm(registered)

	p.logger.Debug().
		Str("accuracy", accuracy.String()).
		Int("backends", registered).
		Msg("location updates requested")

	return req, nil
}

// CurrentPosition requests a fix and waits for it. The request is canceled
// when ctx ends first.
func (p *Provider) CurrentPosition(ctx context.Context, accuracy Accuracy) (GeoPosition, error) {
	req, err := p.GetCurrentPosition(accuracy)
	if err != nil {
		return GeoPosition{}, err
	}

	pos, err := req.Wait(ctx)
	if err != nil {
		req.Cancel()
		return GeoPosition{}, err
	}
	return pos, nil
}

// Request is a pending one-shot position request.
type Request struct {
	logger zerolog.Logger
	done   chan struct{}

	mu       sync.Mutex
	resolved bool
	regs     []Registration
	pending  int // registrations that have neither delivered nor failed
	armed    bool
	failures []error
	pos      GeoPosition
	err      error
}

func newRequest(logger zerolog.Logger) *Request {
	return &Request{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Done is closed once the request has resolved, failed or been canceled.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request resolves or ctx ends. Ending ctx does not
// cancel the request.
func (r *Request) Wait(ctx context.Context) (GeoPosition, error) {
	select {
	case <-r.done:
		return r.Result()
	case <-ctx.Done():
		return GeoPosition{}, ctx.Err()
	}
}

// Result returns the outcome of a resolved request. Before resolution it
// returns a zero position and a nil error.
func (r *Request) Result() (GeoPosition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos, r.err
}

// Cancel unregisters the subscription. A fix arriving afterwards is
// discarded and Wait returns ErrCanceled. No-op once resolved.
func (r *Request) Cancel() {
	r.resolve(GeoPosition{}, ErrCanceled)
}

func (r *Request) updateFrom(backend Backend) UpdateFunc {
	return func(fix Fix, err error) {
		if err != nil {
			r.fail(backend, err)
			return
		}
		if fix.Backend == "" {
			fix.Backend = backend
		}
		r.logger.Debug().
			Str("backend", string(fix.Backend)).
			Msg("location fix received")
		r.resolve(fix.Position, nil)
	}
}

func (r *Request) addRegistration(reg Registration) {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		reg.Remove()
		return
	}
	r.regs = append(r.regs, reg)
	r.mu.Unlock()
}

// arm records how many backends are live so that failures can be counted.
// Failures reported before arming are replayed here.
func (r *Request) arm(registered int) {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return
	}
	r.armed = true
	r.pending = registered - len(r.failures)
	exhausted := r.pending <= 0
	r.mu.Unlock()

	if exhausted {
		r.resolveUnavailable()
	}
}

func (r *Request) fail(backend Backend, err error) {
	r.logger.Warn().Err(err).
		Str("backend", string(backend)).
		Msg("location backend failed")

	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return
	}
	r.failures = append(r.failures, err)
	exhausted := false
	if r.armed {
		r.pending--
		exhausted = r.pending <= 0
	}
	r.mu.Unlock()

	if exhausted {
		r.resolveUnavailable()
	}
}

func (r *Request) resolveUnavailable() {
	r.mu.Lock()
	var last error
	if n := len(r.failures); n > 0 {
		last = r.failures[n-1]
	}
	r.mu.Unlock()
	r.resolve(GeoPosition{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, last))
}

// resolve settles the request exactly once and removes every registration.
func (r *Request) resolve(pos GeoPosition, err error) {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return
	}
	r.resolved = true
	r.pos = pos
	r.err = err
	regs := r.regs
	r.regs = nil
	r.mu.Unlock()

	for _, reg := range regs {
		reg.Remove()
	}
	close(r.done)
}
