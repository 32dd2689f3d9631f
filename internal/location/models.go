// Package location yields a single position fix from the enabled location
// backends, as an awaitable, cancellable request.
package location

import (
	"errors"
	"math"
	"time"
)

// Location errors.
var (
	// ErrPermissionDenied is returned when the caller does not hold location
	// permission. No registration is attempted.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrLocationServiceDisabled is returned when neither the GPS nor the
	// network backend is enabled. No registration is attempted.
	ErrLocationServiceDisabled = errors.New("location service disabled")

	// ErrLocationUnavailable is returned when every backend reported a
	// failure instead of a fix.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrCanceled is returned by a request that was canceled before a fix
	// arrived.
	ErrCanceled = errors.New("location request canceled")
)

// GeoPosition is a geographic position in decimal degrees.
type GeoPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both coordinates are finite and in range.
func (p GeoPosition) Valid() bool {
	return inRange(p.Latitude, 90) && inRange(p.Longitude, 180)
}

func inRange(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// Backend is a location backend class.
type Backend string

const (
	BackendGPS     Backend = "gps"
	BackendNetwork Backend = "network"
)

// Accuracy is the requested fix accuracy.
type Accuracy int

const (
	AccuracyHigh Accuracy = iota
	AccuracyBalanced
)

func (a Accuracy) String() string {
	switch a {
	case AccuracyHigh:
		return "high"
	case AccuracyBalanced:
		return "balanced"
	default:
		return "unknown"
	}
}

// Fix is a single position reading delivered by a backend.
type Fix struct {
	Position GeoPosition
	Backend  Backend
	At       time.Time
}
