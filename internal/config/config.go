package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server    ServerConfig    `toml:"server"`    // HTTP server settings
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
	Provider  ProviderConfig  `toml:"provider"`  // Weather provider API settings
	Geolocate GeolocateConfig `toml:"geolocate"` // Device position lookup settings
	Insights  InsightsConfig  `toml:"insights"`  // Insight rule thresholds
	Briefing  BriefingConfig  `toml:"briefing"`  // AI briefing generation settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	AdditionalPorts    []int    `toml:"additional_ports"`      // Additional HTTP ports to listen on (useful for multiple interfaces)
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory to serve static files from (e.g., "www")
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// ProviderConfig contains weather provider API configuration
type ProviderConfig struct {
	BaseURL              string `toml:"base_url"`                // Base URL for the weather API (e.g., https://api.weatherapi.com/v1)
	APIKey               string `toml:"api_key"`                 // API key for the weather provider (SKYLARK_WEATHER_API_KEY overrides)
	RequestTimeoutSecs   int    `toml:"request_timeout_seconds"` // HTTP request timeout in seconds
	ForecastDays         int    `toml:"forecast_days"`           // Number of forecast days to request (1-10)
	MaxRequestsPerMinute int    `toml:"max_requests_per_minute"` // Client-side rate limit for provider requests
}

// GeolocateConfig contains device position lookup configuration. The default
// position is used when the lookup fails, so the dashboard always has a
// location to load.
type GeolocateConfig struct {
	BaseURL            string  `toml:"base_url"`                // IP geolocation endpoint (e.g., http://ip-api.com/json)
	RequestTimeoutSecs int     `toml:"request_timeout_seconds"` // HTTP request timeout in seconds
	DefaultLatitude    float64 `toml:"default_latitude"`        // Fallback latitude when the lookup fails
	DefaultLongitude   float64 `toml:"default_longitude"`       // Fallback longitude when the lookup fails
	DefaultLabel       string  `toml:"default_label"`           // Display label for the fallback position
}

// InsightsConfig contains the thresholds for the insight rules
type InsightsConfig struct {
	HeatThresholdC         float64 `toml:"heat_threshold_c"`          // Temperature at or above triggers the heat warning
	ColdThresholdC         float64 `toml:"cold_threshold_c"`          // Temperature at or below triggers the cold warning
	WindThresholdKph       float64 `toml:"wind_threshold_kph"`        // Wind speed at or above triggers the wind advisory
	HumidityThresholdPct   int     `toml:"humidity_threshold_pct"`    // Humidity at or above (with the floor below) triggers the humidity advisory
	HumidityTempFloorC     float64 `toml:"humidity_temp_floor_c"`     // Minimum temperature for the humidity advisory
	UVThreshold            float64 `toml:"uv_threshold"`              // UV index at or above triggers the UV advisory
	RainChanceThresholdPct int     `toml:"rain_chance_threshold_pct"` // Today's rain probability at or above triggers the precipitation note
}

// BriefingConfig contains AI briefing generation configuration
type BriefingConfig struct {
	Enabled            bool    `toml:"enabled"`                 // Enable or disable AI briefings
	Provider           string  `toml:"provider"`                // Chat provider: "gemini" or "openai"
	APIKey             string  `toml:"api_key"`                 // Provider API key (SKYLARK_GEMINI_API_KEY / SKYLARK_OPENAI_API_KEY overrides)
	Model              string  `toml:"model"`                   // Model to use (e.g., "gemini-2.0-flash", "gpt-4o-mini")
	MaxTokens          int     `toml:"max_tokens"`              // Maximum tokens in the generated briefing
	Temperature        float64 `toml:"temperature"`             // Response randomness (0.0-2.0)
	CooldownSecs       int     `toml:"cooldown_seconds"`        // Reuse the previous briefing for this long before regenerating
	RequestTimeoutSecs int     `toml:"request_timeout_seconds"` // HTTP timeout for chat provider requests in seconds
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	// Pull in a local .env if present, for api keys kept out of the toml
	_ = godotenv.Load()

	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnvOverrides()

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Location in configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// applyEnvOverrides lets environment variables take precedence over keys
// stored in the config file
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("SKYLARK_WEATHER_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	switch c.Briefing.Provider {
	case "openai":
		if key := os.Getenv("SKYLARK_OPENAI_API_KEY"); key != "" {
			c.Briefing.APIKey = key
		}
	default:
		if key := os.Getenv("SKYLARK_GEMINI_API_KEY"); key != "" {
			c.Briefing.APIKey = key
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	// Validate AdditionalPorts
	portsSeen := make(map[int]bool)
	portsSeen[c.Server.Port] = true
	for _, p := range c.Server.AdditionalPorts {
		if p <= 0 || p > 65535 {
			return fmt.Errorf("invalid additional server port: %d", p)
		}
		if portsSeen[p] {
			return fmt.Errorf("duplicate port configured: %d (primary or additional)", p)
		}
		portsSeen[p] = true
	}

	// Set default static files directory if not specified
	if c.Server.StaticFilesDir == "" {
		c.Server.StaticFilesDir = "www"
	}

	// Validate static files directory exists
	if _, err := os.Stat(c.Server.StaticFilesDir); os.IsNotExist(err) {
		return fmt.Errorf("static files directory does not exist: %s", c.Server.StaticFilesDir)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if err := c.ValidateProvider(); err != nil {
		return err
	}

	if err := c.ValidateGeolocate(); err != nil {
		return err
	}

	if err := c.ValidateInsights(); err != nil {
		return err
	}

	if err := c.ValidateBriefing(); err != nil {
		return err
	}

	return nil
}

// ValidateProvider validates the weather provider configuration
func (c *Config) ValidateProvider() error {
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://api.weatherapi.com/v1"
	}

	if c.Provider.RequestTimeoutSecs == 0 {
		c.Provider.RequestTimeoutSecs = 10
	}
	if c.Provider.RequestTimeoutSecs < 0 {
		return fmt.Errorf("provider request_timeout_seconds must be greater than 0: %d", c.Provider.RequestTimeoutSecs)
	}

	if c.Provider.ForecastDays == 0 {
		c.Provider.ForecastDays = 5
	}
	if c.Provider.ForecastDays < 1 || c.Provider.ForecastDays > 10 {
		return fmt.Errorf("provider forecast_days must be between 1 and 10: %d", c.Provider.ForecastDays)
	}

	if c.Provider.MaxRequestsPerMinute == 0 {
		c.Provider.MaxRequestsPerMinute = 30
	}
	if c.Provider.MaxRequestsPerMinute < 0 {
		return fmt.Errorf("provider max_requests_per_minute must be greater than 0: %d", c.Provider.MaxRequestsPerMinute)
	}

	if c.Provider.APIKey == "" {
		fmt.Printf("WARN: No weather provider API key configured - weather fetching will fail until SKYLARK_WEATHER_API_KEY or provider.api_key is set\n")
	}

	return nil
}

// ValidateGeolocate validates the position lookup configuration
func (c *Config) ValidateGeolocate() error {
	if c.Geolocate.BaseURL == "" {
		c.Geolocate.BaseURL = "http://ip-api.com/json"
	}

	if c.Geolocate.RequestTimeoutSecs == 0 {
		c.Geolocate.RequestTimeoutSecs = 5
	}
	if c.Geolocate.RequestTimeoutSecs < 0 {
		return fmt.Errorf("geolocate request_timeout_seconds must be greater than 0: %d", c.Geolocate.RequestTimeoutSecs)
	}

	// An untouched section falls back to New York
	if c.Geolocate.DefaultLatitude == 0 && c.Geolocate.DefaultLongitude == 0 && c.Geolocate.DefaultLabel == "" {
		c.Geolocate.DefaultLatitude = 40.7128
		c.Geolocate.DefaultLongitude = -74.0060
		c.Geolocate.DefaultLabel = "New York"
	}

	if c.Geolocate.DefaultLatitude < -90 || c.Geolocate.DefaultLatitude > 90 {
		return fmt.Errorf("invalid geolocate default_latitude: %f", c.Geolocate.DefaultLatitude)
	}
	if c.Geolocate.DefaultLongitude < -180 || c.Geolocate.DefaultLongitude > 180 {
		return fmt.Errorf("invalid geolocate default_longitude: %f", c.Geolocate.DefaultLongitude)
	}

	return nil
}

// ValidateInsights validates the insight rule thresholds
func (c *Config) ValidateInsights() error {
	// Set default values for unset thresholds
	if c.Insights.HeatThresholdC == 0 {
		c.Insights.HeatThresholdC = 32
	}
	if c.Insights.ColdThresholdC == 0 {
		c.Insights.ColdThresholdC = -10
	}
	if c.Insights.WindThresholdKph == 0 {
		c.Insights.WindThresholdKph = 40
	}
	if c.Insights.HumidityThresholdPct == 0 {
		c.Insights.HumidityThresholdPct = 80
	}
	if c.Insights.HumidityTempFloorC == 0 {
		c.Insights.HumidityTempFloorC = 27
	}
	if c.Insights.UVThreshold == 0 {
		c.Insights.UVThreshold = 8
	}
	if c.Insights.RainChanceThresholdPct == 0 {
		c.Insights.RainChanceThresholdPct = 70
	}

	if c.Insights.HumidityThresholdPct < 0 || c.Insights.HumidityThresholdPct > 100 {
		return fmt.Errorf("humidity_threshold_pct must be between 0 and 100: %d", c.Insights.HumidityThresholdPct)
	}
	if c.Insights.RainChanceThresholdPct < 0 || c.Insights.RainChanceThresholdPct > 100 {
		return fmt.Errorf("rain_chance_threshold_pct must be between 0 and 100: %d", c.Insights.RainChanceThresholdPct)
	}
	if c.Insights.ColdThresholdC >= c.Insights.HeatThresholdC {
		return fmt.Errorf("cold_threshold_c (%f) must be less than heat_threshold_c (%f)",
			c.Insights.ColdThresholdC, c.Insights.HeatThresholdC)
	}

	return nil
}

// ValidateBriefing validates the briefing configuration
func (c *Config) ValidateBriefing() error {
	if !c.Briefing.Enabled {
		return nil // Skip validation if briefings are disabled
	}

	if c.Briefing.Provider == "" {
		c.Briefing.Provider = "gemini"
	}
	switch c.Briefing.Provider {
	case "gemini", "openai":
		// Valid provider
	default:
		return fmt.Errorf("invalid briefing provider: %s", c.Briefing.Provider)
	}

	if c.Briefing.Model == "" {
		if c.Briefing.Provider == "openai" {
			c.Briefing.Model = "gpt-4o-mini"
		} else {
			c.Briefing.Model = "gemini-2.0-flash"
		}
	}
	if c.Briefing.MaxTokens == 0 {
		c.Briefing.MaxTokens = 512
	}
	if c.Briefing.Temperature < 0 || c.Briefing.Temperature > 2 {
		return fmt.Errorf("briefing temperature must be between 0.0 and 2.0: %f", c.Briefing.Temperature)
	}
	if c.Briefing.CooldownSecs == 0 {
		c.Briefing.CooldownSecs = 60
	}
	if c.Briefing.RequestTimeoutSecs == 0 {
		c.Briefing.RequestTimeoutSecs = 30
	}

	if c.Briefing.APIKey == "" {
		fmt.Printf("WARN: Briefing is enabled but no %s API key provided - briefing features will be disabled\n", c.Briefing.Provider)
	}

	return nil
}

// GetBriefingProvider returns the chat provider API key and whether briefings
// are actually usable (enabled and a key is present)
func (c *Config) GetBriefingProvider() (string, bool) {
	if !c.Briefing.Enabled || c.Briefing.APIKey == "" {
		return "", false
	}
	return c.Briefing.APIKey, true
}
