package weather

import (
	"errors"

	"github.com/weatherapp/weatherapp/internal/location"
)

// Units is the unit system requested from the provider.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ErrInvalidCoordinates is returned for positions outside the valid range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Query describes a single current-weather request.
type Query struct {
	Position location.GeoPosition
	Units    Units
	APIKey   string
}

// Result is the decoded current-weather payload.
// Temperature.Min <= Current <= Max is not guaranteed by the provider.
type Result struct {
	LocationName string

	// Conditions may be empty.
	Conditions []Condition

	Temperature Temperature
	Wind        Wind
	Sun         Sun

	VisibilityMeters int
}

// Condition is a single weather condition entry.
type Condition struct {
	Description string
	IconCode    string
}

// Temperature groups the "main" block of the payload.
type Temperature struct {
	Current   float64
	FeelsLike float64
	Min       float64
	Max       float64

	Pressure int // hPa
	Humidity int // %

	// Absent for some stations.
	SeaLevel    *int
	GroundLevel *int
}

// Wind is the wind block. Speed is in the unit system of the query
// (m/s for metric, mph for imperial).
type Wind struct {
	Speed float64
}

// Sun holds sunrise and sunset as Unix seconds.
type Sun struct {
	Sunrise int64
	Sunset  int64
}

// PrimaryCondition returns the first condition, if any.
func (r *Result) PrimaryCondition() (Condition, bool) {
	if r == nil || len(r.Conditions) == 0 {
		return Condition{}, false
	}
	return r.Conditions[0], true
}

// validateCoordinates checks if coordinates are valid.
func validateCoordinates(pos location.GeoPosition) error {
	if !pos.Valid() {
		return ErrInvalidCoordinates
	}
	return nil
}
