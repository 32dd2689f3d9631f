package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/weatherapp/weatherapp/internal/api/models"
	"github.com/weatherapp/weatherapp/internal/api/response"
	"github.com/weatherapp/weatherapp/internal/location"
	"github.com/weatherapp/weatherapp/internal/pipeline"
	"github.com/weatherapp/weatherapp/internal/presenter"
)

// LocatorFunc builds the locator used for a request from the caller's IP.
// The IP is empty for loopback and private addresses.
type LocatorFunc func(clientIP string) pipeline.Locator

// WeatherHandlerConfig holds the weather handler dependencies.
type WeatherHandlerConfig struct {
	Pipeline *pipeline.Pipeline

	// LocatorFor, when set, replaces the pipeline's locator per request.
	LocatorFor LocatorFunc

	// DefaultLocale applies when neither ?locale nor Accept-Language is
	// usable.
	DefaultLocale string

	Logger zerolog.Logger
}

// WeatherHandler serves current weather.
type WeatherHandler struct {
	pipeline      *pipeline.Pipeline
	locatorFor    LocatorFunc
	defaultLocale string
	validate      *validator.Validate
	logger        zerolog.Logger
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(cfg WeatherHandlerConfig) *WeatherHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})

	return &WeatherHandler{
		pipeline:      cfg.Pipeline,
		locatorFor:    cfg.LocatorFor,
		defaultLocale: cfg.DefaultLocale,
		validate:      validate,
		logger:        cfg.Logger,
	}
}

// GetWeather handles GET /v1/weather - formatted weather for explicit
// coordinates, or for the caller's location when none are given.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	query, fieldErrors := h.parseQuery(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	locale := h.localeFor(r, query.Locale)

	var (
		fields *presenter.DisplayFields
		err    error
	)
	if query.Lat != nil {
		pos := location.GeoPosition{Latitude: *query.Lat, Longitude: *query.Lon}
		fields, err = h.pipeline.RunAt(r.Context(), pos, locale)
	} else {
		p := h.pipeline
		if h.locatorFor != nil {
			p = p.WithLocator(h.locatorFor(publicClientIP(r.RemoteAddr)))
		}
		fields, err = p.Run(r.Context(), locale)
	}

	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.WeatherResponse{
		Provider: h.pipeline.ProviderName(),
		Region:   presenter.RegionFromLocale(locale),
		Weather:  *fields,
	})
}

func (h *WeatherHandler) parseQuery(r *http.Request) (models.WeatherQuery, []models.FieldError) {
	values := r.URL.Query()
	query := models.WeatherQuery{Locale: strings.TrimSpace(values.Get("locale"))}

	var fieldErrors []models.FieldError
	parse := func(name string) *float64 {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   name,
				Message: "must be a decimal number",
				Code:    "INVALID_NUMBER",
			})
			return nil
		}
		return &v
	}
	query.Lat = parse("lat")
	query.Lon = parse("lon")
	if len(fieldErrors) > 0 {
		return query, fieldErrors
	}

	if err := h.validate.Struct(query); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return query, []models.FieldError{{Field: "query", Message: err.Error()}}
		}
		for _, fe := range verrs {
			fieldErrors = append(fieldErrors, fieldErrorFor(fe))
		}
	}
	return query, fieldErrors
}

func fieldErrorFor(fe validator.FieldError) models.FieldError {
	switch fe.Tag() {
	case "required_with":
		return models.FieldError{Field: fe.Field(), Message: "lat and lon must be given together", Code: "REQUIRED"}
	case "gte", "lte":
		return models.FieldError{Field: fe.Field(), Message: "out of range", Code: "OUT_OF_RANGE"}
	case "max":
		return models.FieldError{Field: fe.Field(), Message: "too long", Code: "TOO_LONG"}
	default:
		return models.FieldError{Field: fe.Field(), Message: "invalid value", Code: strings.ToUpper(fe.Tag())}
	}
}

// localeFor picks ?locale, then the first usable Accept-Language tag, then
// the configured default.
func (h *WeatherHandler) localeFor(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		tags, _, err := language.ParseAcceptLanguage(header)
		if err == nil {
			for _, tag := range tags {
				if _, conf := tag.Region(); conf == language.Exact {
					return tag.String()
				}
			}
		}
	}
	return h.defaultLocale
}

// writeFailure maps a pipeline failure onto a problem response carrying
// the user-facing notice.
func (h *WeatherHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	notice := pipeline.NoticeFor(err)

	var newProblem func(traceID, detail string) *models.Problem
	switch notice.Kind {
	case pipeline.KindInvalidCoordinates:
		newProblem = func(traceID, detail string) *models.Problem {
			return models.NewBadRequest(traceID, detail, nil)
		}
	case pipeline.KindPermissionDenied:
		newProblem = models.NewForbidden
	case pipeline.KindLocationDisabled:
		newProblem = models.NewUnprocessable
	case pipeline.KindLocationUnavailable, pipeline.KindNetworkUnreachable:
		newProblem = models.NewServiceUnavailable
	case pipeline.KindTransport, pipeline.KindServer:
		newProblem = models.NewBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			newProblem = models.NewGatewayTimeout
		}
	case pipeline.KindCanceled:
		newProblem = models.NewServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			newProblem = models.NewGatewayTimeout
		}
	default:
		newProblem = models.NewInternalError
	}

	event := h.logger.Warn()
	if notice.Kind == pipeline.KindUnknown {
		event = h.logger.Error()
	}
	event.Err(err).Str("kind", notice.Kind).Str("path", r.URL.Path).Msg("weather request failed")

	response.Coded(w, r, newProblem, notice.Kind, notice.Message)
}

// publicClientIP extracts the caller's address from RemoteAddr, returning
// "" when it cannot be geolocated.
func publicClientIP(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return ""
	}
	return addr.String()
}
