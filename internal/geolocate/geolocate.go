package geolocate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skylarkwx/skylark/pkg/logger"
)

// Position is an approximate device position with a human-readable label
type Position struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label"`
}

// Source resolves the current position of the host. Implementations may use
// IP lookup, a GPS receiver, or a fixed configuration value.
type Source interface {
	Locate(ctx context.Context) (Position, error)
}

// Error reports a failed position lookup. Callers are expected to recover by
// falling back to a configured default position.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geolocate: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("geolocate: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds the settings for the IP lookup client. It mirrors the
// geolocate section of the application config.
type Config struct {
	BaseURL            string
	RequestTimeoutSecs int
}

// Client resolves the host position through the ip-api.com JSON endpoint
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

var _ Source = (*Client)(nil)

// NewClient creates an IP geolocation client
func NewClient(config Config, log *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSecs) * time.Second,
		},
		logger: log.Named("geolocate"),
	}
}

// Locate queries the lookup service for the position of the host's public IP
func (c *Client) Locate(ctx context.Context) (Position, error) {
	url := c.config.BaseURL + "?fields=status,message,lat,lon,city,country"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Position{}, &Error{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Position{}, &Error{Message: "lookup request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Position{}, &Error{Message: fmt.Sprintf("lookup service returned status %d", resp.StatusCode)}
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Position{}, &Error{Message: "malformed lookup response", Err: err}
	}

	if body.Status != "success" {
		return Position{}, &Error{Message: fmt.Sprintf("lookup failed: %s", body.Message)}
	}

	pos := Position{
		Lat:   body.Lat,
		Lon:   body.Lon,
		Label: body.City,
	}
	if body.City != "" && body.Country != "" {
		pos.Label = body.City + ", " + body.Country
	} else if body.Country != "" {
		pos.Label = body.Country
	}

	c.logger.Debug("Resolved position",
		logger.Float64("lat", pos.Lat),
		logger.Float64("lon", pos.Lon),
		logger.String("label", pos.Label))

	return pos, nil
}

// lookupResponse is the ip-api.com JSON shape
type lookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
	Country string  `json:"country"`
}
