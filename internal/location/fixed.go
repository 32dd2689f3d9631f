package location

import (
	"sync"
	"time"
)

// FixedSource is a GPS backend that reports a configured device position,
// for hosts with a known, stationary location.
type FixedSource struct {
	position *GeoPosition
	delay    time.Duration
	now      func() time.Time
}

// NewFixedSource creates a GPS backend at pos. A nil pos leaves the backend
// disabled. delay simulates the time to first fix.
func NewFixedSource(pos *GeoPosition, delay time.Duration) *FixedSource {
	return &FixedSource{position: pos, delay: delay, now: time.Now}
}

// Backend implements Source.
func (s *FixedSource) Backend() Backend { return BackendGPS }

// Enabled implements Source.
func (s *FixedSource) Enabled() bool { return s.position != nil }

// RequestUpdates delivers the configured position once, after the delay,
// unless the registration is removed first.
func (s *FixedSource) RequestUpdates(_ Accuracy, update UpdateFunc) (Registration, error) {
	reg := newStopRegistration()
	pos := *s.position

	go func() {
		if s.delay > 0 {
			timer := time.NewTimer(s.delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-reg.stop:
				return
			}
		}

		select {
		case <-reg.stop:
			return
		default:
		}
		update(Fix{Position: pos, Backend: BackendGPS, At: s.now()}, nil)
	}()

	return reg, nil
}

// stopRegistration closes its channel on the first Remove.
type stopRegistration struct {
	once sync.Once
	stop chan struct{}
}

func newStopRegistration() *stopRegistration {
	return &stopRegistration{stop: make(chan struct{})}
}

// Remove implements Registration.
func (r *stopRegistration) Remove() {
	r.once.Do(func() { close(r.stop) })
}
