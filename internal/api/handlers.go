package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/skylarkwx/skylark/internal/briefing"
	"github.com/skylarkwx/skylark/internal/config"
	"github.com/skylarkwx/skylark/internal/dashboard"
	"github.com/skylarkwx/skylark/internal/weather"
	"github.com/skylarkwx/skylark/internal/websocket"
	"github.com/skylarkwx/skylark/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	dashboardService *dashboard.Service
	weatherClient    dashboard.WeatherFetcher
	briefingService  *briefing.Service
	config           *config.Config
	logger           *logger.Logger
	wsServer         *websocket.Server
	version          string
	startTime        time.Time
}

// NewHandler creates a new API handler. The briefing service may be nil when
// briefings are disabled in the configuration.
func NewHandler(dashboardService *dashboard.Service, weatherClient dashboard.WeatherFetcher, briefingService *briefing.Service, config *config.Config, logger *logger.Logger, wsServer *websocket.Server, version string) *Handler {
	return &Handler{
		dashboardService: dashboardService,
		weatherClient:    weatherClient,
		briefingService:  briefingService,
		config:           config,
		logger:           logger.Named("api-handler"),
		wsServer:         wsServer,
		version:          version,
		startTime:        time.Now().UTC(),
	}
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := h.dashboardService.Snapshot()

	response := map[string]interface{}{
		"status":            "ok",
		"version":           h.version,
		"uptime_seconds":    int(time.Since(h.startTime).Seconds()),
		"dashboard_state":   snapshot.State,
		"connected_clients": h.wsServer.ClientCount(),
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	// Create a sanitized config with only public values
	publicConfig := map[string]interface{}{
		"provider": map[string]interface{}{
			"forecast_days": h.config.Provider.ForecastDays,
		},
		"geolocate": map[string]interface{}{
			"default_latitude":  h.config.Geolocate.DefaultLatitude,
			"default_longitude": h.config.Geolocate.DefaultLongitude,
			"default_label":     h.config.Geolocate.DefaultLabel,
		},
		"insights": map[string]interface{}{
			"heat_threshold_c":          h.config.Insights.HeatThresholdC,
			"cold_threshold_c":          h.config.Insights.ColdThresholdC,
			"wind_threshold_kph":        h.config.Insights.WindThresholdKph,
			"humidity_threshold_pct":    h.config.Insights.HumidityThresholdPct,
			"uv_threshold":              h.config.Insights.UVThreshold,
			"rain_chance_threshold_pct": h.config.Insights.RainChanceThresholdPct,
		},
		"briefing": map[string]interface{}{
			"enabled": h.config.Briefing.Enabled,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// GetDashboard returns the current dashboard snapshot
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.dashboardService.Snapshot())
}

// LocateDashboard loads the dashboard for a position. With explicit
// coordinates in the body it loads those; without a body it resolves the
// device position, falling back to the configured default.
func (h *Handler) LocateDashboard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Latitude  *float64 `json:"latitude"`  // nil to use the device position
		Longitude *float64 `json:"longitude"` // nil to use the device position
		Label     string   `json:"label"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.logger.Error("Failed to parse locate request", logger.Error(err))
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Latitude != nil && req.Longitude != nil {
		lat, lon := *req.Latitude, *req.Longitude

		if lat < -90 || lat > 90 {
			WriteError(w, http.StatusBadRequest, "Invalid latitude: must be between -90 and 90")
			return
		}
		if lon < -180 || lon > 180 {
			WriteError(w, http.StatusBadRequest, "Invalid longitude: must be between -180 and 180")
			return
		}

		if _, err := h.dashboardService.UseCoordinates(lat, lon, req.Label); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Info("Dashboard location set via API",
			logger.Float64("latitude", lat),
			logger.Float64("longitude", lon))
	} else if req.Latitude != nil || req.Longitude != nil {
		WriteError(w, http.StatusBadRequest, "Both latitude and longitude must be provided together")
		return
	} else {
		h.dashboardService.UseMyLocation()
		h.logger.Info("Device position lookup requested via API")
	}

	WriteJSON(w, http.StatusAccepted, h.dashboardService.Snapshot())
}

// SelectDashboardLocation loads the dashboard for a search suggestion
func (h *Handler) SelectDashboardLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		Region    string  `json:"region"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to parse location request", logger.Error(err))
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Latitude < -90 || req.Latitude > 90 {
		WriteError(w, http.StatusBadRequest, "Invalid latitude: must be between -90 and 90")
		return
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		WriteError(w, http.StatusBadRequest, "Invalid longitude: must be between -180 and 180")
		return
	}

	suggestion := weather.LocationSuggestion{
		Name:    req.Name,
		Region:  req.Region,
		Country: req.Country,
		Lat:     req.Latitude,
		Lon:     req.Longitude,
	}

	if _, err := h.dashboardService.SelectLocation(suggestion); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Dashboard location selected via API",
		logger.String("name", req.Name),
		logger.Float64("latitude", req.Latitude),
		logger.Float64("longitude", req.Longitude))

	WriteJSON(w, http.StatusAccepted, h.dashboardService.Snapshot())
}

// RefreshDashboard reloads the currently displayed location
func (h *Handler) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	if _, err := h.dashboardService.Refresh(); err != nil {
		if errors.Is(err, dashboard.ErrNotReady) {
			WriteError(w, http.StatusConflict, "Dashboard is not ready to refresh")
			return
		}
		h.logger.Error("Failed to refresh dashboard", logger.Error(err))
		WriteError(w, http.StatusInternalServerError, "Failed to refresh dashboard")
		return
	}

	WriteJSON(w, http.StatusAccepted, h.dashboardService.Snapshot())
}

// SearchLocations returns location suggestions for a free-text query
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	suggestions, err := h.dashboardService.SearchLocations(r.Context(), query)
	if err != nil {
		h.logger.Error("Location search failed",
			logger.String("query", query),
			logger.Error(err))
		if weather.IsNetwork(err) || weather.IsParse(err) {
			WriteError(w, http.StatusBadGateway, "Location search failed")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Location search failed")
		return
	}

	WriteJSON(w, http.StatusOK, suggestions)
}

// GetWeather performs a stateless weather fetch for explicit coordinates,
// without touching the dashboard state
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		WriteError(w, http.StatusBadRequest, "Missing required query parameters: lat and lon")
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid latitude: must be a number")
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid longitude: must be a number")
		return
	}

	if lat < -90 || lat > 90 {
		WriteError(w, http.StatusBadRequest, "Invalid latitude: must be between -90 and 90")
		return
	}
	if lon < -180 || lon > 180 {
		WriteError(w, http.StatusBadRequest, "Invalid longitude: must be between -180 and 180")
		return
	}

	data, err := h.weatherClient.FetchByCoordinates(r.Context(), lat, lon)
	if err != nil {
		h.logger.Error("Weather fetch failed",
			logger.Float64("lat", lat),
			logger.Float64("lon", lon),
			logger.Error(err))
		switch {
		case weather.IsNotFound(err):
			WriteError(w, http.StatusNotFound, "No weather data for this location")
		case weather.IsNetwork(err), weather.IsParse(err):
			WriteError(w, http.StatusBadGateway, "Weather provider unavailable")
		default:
			WriteError(w, http.StatusInternalServerError, "Failed to fetch weather data")
		}
		return
	}

	WriteJSON(w, http.StatusOK, data)
}

// GenerateBriefing generates a conversational briefing for the loaded weather
func (h *Handler) GenerateBriefing(w http.ResponseWriter, r *http.Request) {
	if h.briefingService == nil {
		WriteError(w, http.StatusServiceUnavailable, "Briefing service not available")
		return
	}

	result, err := h.briefingService.Generate(r.Context())
	if err != nil {
		if errors.Is(err, briefing.ErrNoData) {
			WriteError(w, http.StatusConflict, "No weather data loaded yet")
			return
		}
		h.logger.Error("Failed to generate briefing", logger.Error(err))
		WriteError(w, http.StatusBadGateway, "Failed to generate briefing")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// GetBriefing returns the most recently generated briefing
func (h *Handler) GetBriefing(w http.ResponseWriter, r *http.Request) {
	if h.briefingService == nil {
		WriteError(w, http.StatusServiceUnavailable, "Briefing service not available")
		return
	}

	last := h.briefingService.Last()
	if last == nil {
		WriteError(w, http.StatusNotFound, "No briefing generated yet")
		return
	}

	WriteJSON(w, http.StatusOK, last)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
