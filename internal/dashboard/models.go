package dashboard

import (
	"errors"
	"time"

	"github.com/skylarkwx/skylark/internal/insights"
	"github.com/skylarkwx/skylark/internal/weather"
)

// State is the dashboard lifecycle state
type State string

const (
	StateIdle    State = "idle"    // Created, no load issued yet
	StateLoading State = "loading" // A fetch is in flight
	StateReady   State = "ready"   // Weather data is available
	StateError   State = "error"   // Last fetch failed and no data is available
)

var (
	// ErrNotReady is returned when a refresh is requested outside the ready state
	ErrNotReady = errors.New("dashboard is not ready to refresh")

	// ErrNothingToRetry is returned when a retry is requested before any location was loaded
	ErrNothingToRetry = errors.New("no previous location to retry")
)

// Coordinates is the position a fetch was issued for. Refresh reuses these
// values verbatim rather than the position echoed back by the provider.
type Coordinates struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label,omitempty"`
}

// Snapshot is a point-in-time view of the dashboard. Weather and Insights
// reference the immutable result of the last successful fetch; Stale marks
// data retained across a failed reload.
type Snapshot struct {
	State       State                `json:"state"`
	Coordinates *Coordinates         `json:"coordinates,omitempty"`
	Weather     *weather.WeatherData `json:"weather,omitempty"`
	Insights    []insights.Insight   `json:"insights"`
	Stale       bool                 `json:"stale"`
	LastError   string               `json:"last_error,omitempty"`
	RequestSeq  uint64               `json:"request_seq"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
