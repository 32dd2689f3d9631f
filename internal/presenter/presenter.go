// Package presenter turns a decoded weather result into display strings.
// Formatting is pure: no I/O, no clock reads, no shared state.
package presenter

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/weatherapp/weatherapp/internal/weather"
)

// IconCategory is the closed set of icons the display knows about.
type IconCategory string

const (
	IconNone  IconCategory = ""
	IconCloud IconCategory = "cloud"
	IconSunny IconCategory = "sunny"
)

// iconTable maps provider icon codes to categories. Codes not listed select
// no icon.
var iconTable = map[string]IconCategory{
	"01d": IconCloud,
	"02d": IconSunny,
	"03d": IconSunny,
	"04d": IconSunny,
	"09d": IconSunny,
	"10d": IconSunny,
	"11d": IconSunny,
	"13d": IconSunny,
	"01n": IconSunny,
	"02n": IconSunny,
	"03n": IconSunny,
	"10n": IconSunny,
	"11n": IconSunny,
}

// fahrenheitRegions label temperatures in Fahrenheit by convention.
var fahrenheitRegions = map[string]struct{}{
	"US": {},
	"LR": {},
	"MM": {},
}

const (
	SuffixCelsius    = "°C"
	SuffixFahrenheit = "°F"

	timeOfDayLayout = "15:04"
)

// DisplayFields holds every string the display renders.
type DisplayFields struct {
	Location       string             `json:"location"`
	Status         string             `json:"status"`
	Temperature    string             `json:"temperature"`
	FeelsLike      string             `json:"feelsLike"`
	MinTemperature string             `json:"minTemperature"`
	MaxTemperature string             `json:"maxTemperature"`
	Sunrise        string             `json:"sunrise"`
	Sunset         string             `json:"sunset"`
	Wind           string             `json:"wind"`
	Pressure       string             `json:"pressure"`
	Humidity       string             `json:"humidity"`
	Visibility     string             `json:"visibility"`
	Icon           IconCategory       `json:"icon,omitempty"`
	Conditions     []ConditionDisplay `json:"conditions"`
}

// ConditionDisplay is one formatted condition entry.
type ConditionDisplay struct {
	Description string       `json:"description"`
	Icon        IconCategory `json:"icon,omitempty"`
}

// Presenter formats weather results for one time zone.
type Presenter struct {
	location *time.Location
}

// New creates a presenter rendering times in loc. A nil loc uses the
// host's local zone.
func New(loc *time.Location) *Presenter {
	if loc == nil {
		loc = time.Local
	}
	return &Presenter{location: loc}
}

// Location returns the presenter's time zone.
func (p *Presenter) Location() *time.Location {
	return p.location
}

// Format converts result into display strings, labelling temperatures for
// localeRegion.
//
// The suffix depends on the region only, not on the unit system the values
// were fetched in. Single-valued fields (status, icon) follow the first
// condition; every condition is listed in Conditions.
func (p *Presenter) Format(result *weather.Result, localeRegion string) DisplayFields {
	if result == nil {
		return DisplayFields{Conditions: []ConditionDisplay{}}
	}

	suffix := UnitSuffix(localeRegion)
	temp := result.Temperature

	fields := DisplayFields{
		Location:       result.LocationName,
		Temperature:    formatNumber(temp.Current) + suffix,
		FeelsLike:      formatNumber(temp.FeelsLike) + suffix,
		MinTemperature: formatNumber(temp.Min) + " min",
		MaxTemperature: formatNumber(temp.Max) + " max",
		Sunrise:        p.FormatTimeOfDay(result.Sun.Sunrise),
		Sunset:         p.FormatTimeOfDay(result.Sun.Sunset),
		Wind:           formatNumber(result.Wind.Speed) + " miles/hour",
		Pressure:       strconv.Itoa(temp.Pressure),
		Humidity:       strconv.Itoa(temp.Humidity) + " per cent",
		Visibility:     strconv.Itoa(result.VisibilityMeters),
		Conditions:     make([]ConditionDisplay, 0, len(result.Conditions)),
	}

	for _, c := range result.Conditions {
		fields.Conditions = append(fields.Conditions, ConditionDisplay{
			Description: c.Description,
			Icon:        IconFor(c.IconCode),
		})
	}

	if primary, ok := result.PrimaryCondition(); ok {
		fields.Status = primary.Description
		fields.Icon = IconFor(primary.IconCode)
	}

	return fields
}

// FormatTimeOfDay renders epoch seconds as a 24-hour HH:mm string.
func (p *Presenter) FormatTimeOfDay(epochSeconds int64) string {
	return time.Unix(epochSeconds, 0).In(p.location).Format(timeOfDayLayout)
}

// UnitSuffix returns the temperature label for region.
func UnitSuffix(region string) string {
	if UsesFahrenheit(region) {
		return SuffixFahrenheit
	}
	return SuffixCelsius
}

// UsesFahrenheit reports whether region labels temperatures in Fahrenheit.
func UsesFahrenheit(region string) bool {
	_, ok := fahrenheitRegions[strings.ToUpper(region)]
	return ok
}

// IconFor maps a provider icon code to a category, or IconNone.
func IconFor(code string) IconCategory {
	return iconTable[code]
}

// formatNumber always carries a fractional part, so 20 renders as "20.0"
// and 20.5 as "20.5".
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsNaN(v) || math.IsInf(v, 0) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
