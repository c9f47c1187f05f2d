package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skylarkwx/skylark/pkg/logger"
	"golang.org/x/time/rate"
)

// providerErrNoLocation is the provider's error code for an unresolvable location
const providerErrNoLocation = 1006

// Client handles HTTP requests to the weather provider.
// It performs a single attempt per call: no caching, no retries.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// NewClient creates a new weather provider client
func NewClient(config ClientConfig, logger *logger.Logger) *Client {
	rpm := config.MaxRequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultClientConfig().MaxRequestsPerMinute
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSecs) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		logger:  logger.Named("weather-client"),
	}
}

// FetchByCoordinates fetches current conditions, forecast and alerts for the
// given coordinates and normalizes them into a WeatherData
func (c *Client) FetchByCoordinates(ctx context.Context, lat, lon float64) (*WeatherData, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude out of range: %f", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("longitude out of range: %f", lon)
	}

	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("q", fmt.Sprintf("%.4f,%.4f", lat, lon))
	params.Set("days", fmt.Sprintf("%d", c.config.ForecastDays))
	params.Set("aqi", "no")
	params.Set("alerts", "yes")
	requestURL := fmt.Sprintf("%s/forecast.json?%s", c.config.BaseURL, params.Encode())

	c.logger.Debug("Fetching weather data",
		logger.Float64("lat", lat),
		logger.Float64("lon", lon))

	var resp forecastResponse
	if err := c.get(ctx, requestURL, &resp); err != nil {
		c.logger.Warn("Weather fetch failed",
			logger.Float64("lat", lat),
			logger.Float64("lon", lon),
			logger.Error(err))
		return nil, err
	}

	data := normalizeForecast(&resp)
	c.logger.Debug("Fetched weather data",
		logger.String("location", data.Location.Name),
		logger.Int("forecast_days", len(data.Forecast)),
		logger.Int("alerts", len(data.Alerts)))
	return data, nil
}

// SearchLocations looks up location suggestions for a free-text query.
// An empty or whitespace-only query returns an empty list without any network call.
func (c *Client) SearchLocations(ctx context.Context, query string) ([]LocationSuggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []LocationSuggestion{}, nil
	}

	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("q", query)
	requestURL := fmt.Sprintf("%s/search.json?%s", c.config.BaseURL, params.Encode())

	c.logger.Debug("Searching locations", logger.String("query", query))

	var items []searchResponseItem
	if err := c.get(ctx, requestURL, &items); err != nil {
		c.logger.Warn("Location search failed",
			logger.String("query", query),
			logger.Error(err))
		return nil, err
	}

	suggestions := make([]LocationSuggestion, 0, len(items))
	for _, item := range items {
		suggestions = append(suggestions, LocationSuggestion{
			Name:    item.Name,
			Region:  item.Region,
			Country: item.Country,
			Lat:     item.Lat,
			Lon:     item.Lon,
		})
	}
	return suggestions, nil
}

// get performs a single GET against the provider and decodes the response
// into target, classifying every failure into the fetch error taxonomy
func (c *Client) get(ctx context.Context, requestURL string, target any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return NewNetworkError("rate limiter wait aborted", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return NewNetworkError("failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewNetworkError("request to weather provider failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		// The provider wraps failures in an error envelope; an unresolvable
		// location is reported as code 1006 on a 400 response.
		var envelope errorResponse
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code == providerErrNoLocation {
			return NewNotFoundError(envelope.Error.Message)
		}
		if resp.StatusCode == http.StatusNotFound {
			return NewNotFoundError("no data for location")
		}
		return NewNetworkError(fmt.Sprintf("provider returned status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return NewParseError("malformed provider response", err)
	}
	return nil
}

// normalizeForecast maps the provider response into the internal model,
// populating every top-level field so the result is never partial
func normalizeForecast(resp *forecastResponse) *WeatherData {
	data := &WeatherData{
		Location: Location{
			Name:    resp.Location.Name,
			Region:  resp.Location.Region,
			Country: resp.Location.Country,
			Lat:     resp.Location.Lat,
			Lon:     resp.Location.Lon,
		},
		Current: CurrentConditions{
			TempC:         resp.Current.TempC,
			FeelsLikeC:    resp.Current.FeelslikeC,
			Condition:     resp.Current.Condition.Text,
			ConditionCode: resp.Current.Condition.Code,
			Humidity:      resp.Current.Humidity,
			WindKph:       resp.Current.WindKph,
			WindDegree:    resp.Current.WindDegree,
			PressureMb:    resp.Current.PressureMb,
			UV:            resp.Current.UV,
			Observed:      time.Unix(resp.Current.LastUpdatedEpoch, 0).UTC(),
		},
		Forecast:  make([]DailyForecast, 0, len(resp.Forecast.Forecastday)),
		Alerts:    make([]Alert, 0, len(resp.Alerts.Alert)),
		FetchedAt: time.Now().UTC(),
	}

	for _, day := range resp.Forecast.Forecastday {
		data.Forecast = append(data.Forecast, DailyForecast{
			Date:          day.Date,
			MaxTempC:      day.Day.MaxtempC,
			MinTempC:      day.Day.MintempC,
			AvgHumidity:   int(day.Day.Avghumidity),
			MaxWindKph:    day.Day.MaxwindKph,
			ChanceOfRain:  day.Day.DailyChanceOfRain,
			Condition:     day.Day.Condition.Text,
			ConditionCode: day.Day.Condition.Code,
		})
	}

	for _, alert := range resp.Alerts.Alert {
		data.Alerts = append(data.Alerts, Alert{
			Event:       alert.Event,
			Headline:    alert.Headline,
			Severity:    alert.Severity,
			Areas:       alert.Areas,
			Description: alert.Desc,
			Effective:   alert.Effective,
			Expires:     alert.Expires,
		})
	}

	return data
}

// Provider wire formats

type forecastResponse struct {
	Location struct {
		Name    string  `json:"name"`
		Region  string  `json:"region"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64   `json:"last_updated_epoch"`
		TempC            float64 `json:"temp_c"`
		FeelslikeC       float64 `json:"feelslike_c"`
		Humidity         int     `json:"humidity"`
		WindKph          float64 `json:"wind_kph"`
		WindDegree       int     `json:"wind_degree"`
		PressureMb       float64 `json:"pressure_mb"`
		UV               float64 `json:"uv"`
		Condition        struct {
			Text string `json:"text"`
			Code int    `json:"code"`
		} `json:"condition"`
	} `json:"current"`
	Forecast struct {
		Forecastday []struct {
			Date string `json:"date"`
			Day  struct {
				MaxtempC          float64 `json:"maxtemp_c"`
				MintempC          float64 `json:"mintemp_c"`
				Avghumidity       float64 `json:"avghumidity"`
				MaxwindKph        float64 `json:"maxwind_kph"`
				DailyChanceOfRain int     `json:"daily_chance_of_rain"`
				Condition         struct {
					Text string `json:"text"`
					Code int    `json:"code"`
				} `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
	Alerts struct {
		Alert []struct {
			Headline  string `json:"headline"`
			Event     string `json:"event"`
			Severity  string `json:"severity"`
			Areas     string `json:"areas"`
			Desc      string `json:"desc"`
			Effective string `json:"effective"`
			Expires   string `json:"expires"`
		} `json:"alert"`
	} `json:"alerts"`
}

type searchResponseItem struct {
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
