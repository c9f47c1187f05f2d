package insights

import (
	"fmt"

	"github.com/skylarkwx/skylark/internal/weather"
)

// Severity ranks how urgent an insight is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityAdvisory Severity = "advisory"
	SeverityWarning  Severity = "warning"
)

// Insight categories
const (
	CategoryAlert         = "alert"
	CategoryHeat          = "heat"
	CategoryCold          = "cold"
	CategoryWind          = "wind"
	CategoryHumidity      = "humidity"
	CategoryUV            = "uv"
	CategoryPrecipitation = "precipitation"
)

// Insight is a short advisory derived from weather fields by fixed threshold
// rules. Insights are recomputed from the latest WeatherData, never stored.
type Insight struct {
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Thresholds holds the tunable rule thresholds. It mirrors the insights
// section of the application config to avoid a circular import.
type Thresholds struct {
	HeatC              float64 // Current temperature at or above triggers the heat rule
	ColdC              float64 // Current temperature at or below triggers the cold rule
	WindKph            float64 // Wind speed at or above triggers the wind rule
	HumidityPct        int     // Humidity at or above, combined with the floor below, triggers the humidity rule
	HumidityTempFloorC float64 // Minimum temperature for the humidity rule
	UV                 float64 // UV index at or above triggers the UV rule
	RainChancePct      int     // Today's rain probability at or above triggers the precipitation rule
}

// DefaultThresholds returns the default rule thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeatC:              32,
		ColdC:              -10,
		WindKph:            40,
		HumidityPct:        80,
		HumidityTempFloorC: 27,
		UV:                 8,
		RainChancePct:      70,
	}
}

// rule pairs a predicate with a message builder. Rules are evaluated
// independently in table order; every matching rule emits one insight.
type rule struct {
	category string
	severity Severity
	matches  func(d *weather.WeatherData) bool
	message  func(d *weather.WeatherData) string
}

// Engine derives insights from weather data. It is a pure function over its
// input: no I/O, no state, identical input always yields the identical
// ordered sequence.
type Engine struct {
	rules []rule
}

// NewEngine builds the rule table for the given thresholds
func NewEngine(t Thresholds) *Engine {
	return &Engine{
		rules: []rule{
			{
				category: CategoryAlert,
				severity: SeverityWarning,
				matches: func(d *weather.WeatherData) bool {
					return len(d.Alerts) > 0
				},
				message: func(d *weather.WeatherData) string {
					if len(d.Alerts) == 1 {
						return fmt.Sprintf("Active weather alert: %s. Check local guidance before heading out.", d.Alerts[0].Event)
					}
					return fmt.Sprintf("%d active weather alerts, including %s. Check local guidance before heading out.", len(d.Alerts), d.Alerts[0].Event)
				},
			},
			{
				category: CategoryHeat,
				severity: SeverityWarning,
				matches: func(d *weather.WeatherData) bool {
					return d.Current.TempC >= t.HeatC
				},
				message: func(d *weather.WeatherData) string {
					return fmt.Sprintf("High heat: %.0f°C. Stay hydrated and limit sun exposure during peak hours.", d.Current.TempC)
				},
			},
			{
				category: CategoryCold,
				severity: SeverityWarning,
				matches: func(d *weather.WeatherData) bool {
					return d.Current.TempC <= t.ColdC
				},
				message: func(d *weather.WeatherData) string {
					return fmt.Sprintf("Severe cold: %.0f°C. Dress in layers and limit time outside.", d.Current.TempC)
				},
			},
			{
				category: CategoryWind,
				severity: SeverityAdvisory,
				matches: func(d *weather.WeatherData) bool {
					return d.Current.WindKph >= t.WindKph
				},
				message: func(d *weather.WeatherData) string {
					return fmt.Sprintf("Windy conditions: %.0f km/h. Secure loose outdoor items.", d.Current.WindKph)
				},
			},
			{
				category: CategoryHumidity,
				severity: SeverityAdvisory,
				matches: func(d *weather.WeatherData) bool {
					return d.Current.Humidity >= t.HumidityPct && d.Current.TempC >= t.HumidityTempFloorC
				},
				message: func(d *weather.WeatherData) string {
					return fmt.Sprintf("Muggy: %d%% humidity at %.0f°C. Expect reduced comfort outdoors.", d.Current.Humidity, d.Current.TempC)
				},
			},
			{
				category: CategoryUV,
				severity: SeverityAdvisory,
				matches: func(d *weather.WeatherData) bool {
					return d.Current.UV >= t.UV
				},
				message: func(d *weather.WeatherData) string {
					return fmt.Sprintf("Very high UV index (%.0f). Use sun protection.", d.Current.UV)
				},
			},
			{
				category: CategoryPrecipitation,
				severity: SeverityInfo,
				matches: func(d *weather.WeatherData) bool {
					return len(d.Forecast) > 0 && d.Forecast[0].ChanceOfRain >= t.RainChancePct
				},
				message: func(d *weather.WeatherData) string {
					return fmt.Sprintf("Rain likely today (%d%% chance). Carry an umbrella.", d.Forecast[0].ChanceOfRain)
				},
			},
		},
	}
}

// Evaluate runs every rule against the data in table order and returns the
// insights for all matching rules
func (e *Engine) Evaluate(data *weather.WeatherData) []Insight {
	result := make([]Insight, 0, len(e.rules))
	if data == nil {
		return result
	}
	for _, r := range e.rules {
		if r.matches(data) {
			result = append(result, Insight{
				Category: r.category,
				Severity: r.severity,
				Message:  r.message(data),
			})
		}
	}
	return result
}
