package weather

import (
	"time"
)

// WeatherData is the normalized result of a single provider fetch.
// It is immutable once constructed: a new fetch produces a new value and
// callers replace the whole struct, fields are never mutated in place.
type WeatherData struct {
	Location  Location          `json:"location"`
	Current   CurrentConditions `json:"current"`
	Forecast  []DailyForecast   `json:"forecast"`
	Alerts    []Alert           `json:"alerts"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Location identifies the place the data describes, as resolved by the provider
type Location struct {
	Name    string  `json:"name"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentConditions holds the observed conditions at fetch time
type CurrentConditions struct {
	TempC         float64   `json:"temp_c"`         // Air temperature in Celsius
	FeelsLikeC    float64   `json:"feelslike_c"`    // Apparent temperature in Celsius
	Condition     string    `json:"condition"`      // Condition text (e.g., "Partly cloudy")
	ConditionCode int       `json:"condition_code"` // Provider condition code
	Humidity      int       `json:"humidity"`       // Relative humidity in percent
	WindKph       float64   `json:"wind_kph"`       // Wind speed in km/h
	WindDegree    int       `json:"wind_degree"`    // Wind direction in degrees
	PressureMb    float64   `json:"pressure_mb"`    // Pressure in millibars
	UV            float64   `json:"uv"`             // UV index
	Observed      time.Time `json:"observed"`       // Provider observation time
}

// DailyForecast holds one day of the multi-day forecast
type DailyForecast struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	MaxTempC      float64 `json:"max_temp_c"`
	MinTempC      float64 `json:"min_temp_c"`
	AvgHumidity   int     `json:"avg_humidity"`
	MaxWindKph    float64 `json:"max_wind_kph"`
	ChanceOfRain  int     `json:"chance_of_rain"` // Probability in percent
	Condition     string  `json:"condition"`
	ConditionCode int     `json:"condition_code"`
}

// Alert is an active weather alert reported by the provider
type Alert struct {
	Event       string `json:"event"`
	Headline    string `json:"headline"`
	Severity    string `json:"severity"`
	Areas       string `json:"areas,omitempty"`
	Description string `json:"description,omitempty"`
	Effective   string `json:"effective,omitempty"`
	Expires     string `json:"expires,omitempty"`
}

// LocationSuggestion is a candidate returned by a text search against the
// provider's geocoding endpoint, consumed to trigger a new fetch
type LocationSuggestion struct {
	Name    string  `json:"name"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// ClientConfig holds the weather client settings. It mirrors the provider
// section of the application config to avoid a circular import; main converts.
type ClientConfig struct {
	BaseURL              string
	APIKey               string
	RequestTimeoutSecs   int
	ForecastDays         int
	MaxRequestsPerMinute int
}

// DefaultClientConfig returns the default weather client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:              "https://api.weatherapi.com/v1",
		RequestTimeoutSecs:   10,
		ForecastDays:         5,
		MaxRequestsPerMinute: 30,
	}
}
