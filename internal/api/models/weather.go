package models

import "github.com/weatherapp/weatherapp/internal/presenter"

// WeatherQuery holds the GET /v1/weather query parameters. Lat and Lon are
// both present or both absent.
type WeatherQuery struct {
	Lat    *float64 `query:"lat" validate:"required_with=Lon,omitempty,gte=-90,lte=90"`
	Lon    *float64 `query:"lon" validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
	Locale string   `query:"locale" validate:"omitempty,max=64"`
}

// WeatherResponse is the body of a successful GET /v1/weather.
type WeatherResponse struct {
	Provider string                  `json:"provider"`
	Region   string                  `json:"region,omitempty"`
	Weather  presenter.DisplayFields `json:"weather"`
}
