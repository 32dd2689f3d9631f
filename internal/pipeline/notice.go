package pipeline

import (
	"context"
	"errors"

	"github.com/weatherapp/weatherapp/internal/location"
	"github.com/weatherapp/weatherapp/internal/telemetry"
	"github.com/weatherapp/weatherapp/internal/weather"
)

// Error kind labels, used in notices, logs and metrics.
const (
	KindPermissionDenied    = "permission_denied"
	KindLocationDisabled    = "location_disabled"
	KindLocationUnavailable = "location_unavailable"
	KindNetworkUnreachable  = "network_unreachable"
	KindTransport           = "transport"
	KindServer              = "server"
	KindInvalidCoordinates  = "invalid_coordinates"
	KindCanceled            = "canceled"
	KindUnknown             = "unknown"
)

// Notice is the user-facing message for a failed cycle.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var noticeMessages = map[string]string{
	KindPermissionDenied:    "You have denied location permission. Please enable them as it is mandatory for the app to work",
	KindLocationDisabled:    "Your location provider is turned off. Please turn it on",
	KindLocationUnavailable: "Unable to determine your location. Please try again",
	KindNetworkUnreachable:  "No Internet Connection Available",
	KindTransport:           "Could not reach the weather service. Please try again later",
	KindServer:              "The weather service returned an error. Please try again later",
	KindInvalidCoordinates:  "The location is not valid",
	KindCanceled:            "The request was canceled",
	KindUnknown:             "Something went wrong. Please try again",
}

// Kind classifies err. A nil error is telemetry.OutcomeOK.
func Kind(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.Is(err, location.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, location.ErrLocationServiceDisabled):
		return KindLocationDisabled
	case errors.Is(err, location.ErrLocationUnavailable):
		return KindLocationUnavailable
	case errors.Is(err, weather.ErrNetworkUnreachable):
		return KindNetworkUnreachable
	case errors.Is(err, weather.ErrServer):
		return KindServer
	case errors.Is(err, weather.ErrInvalidCoordinates):
		return KindInvalidCoordinates
	case errors.Is(err, weather.ErrTransport):
		return KindTransport
	case errors.Is(err, location.ErrCanceled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// NoticeFor returns the user-facing notice for err.
func NoticeFor(err error) Notice {
	kind := Kind(err)
	msg, ok := noticeMessages[kind]
	if !ok {
		msg = noticeMessages[KindUnknown]
	}
	return Notice{Kind: kind, Message: msg}
}
