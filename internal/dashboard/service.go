package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/skylarkwx/skylark/internal/geolocate"
	"github.com/skylarkwx/skylark/internal/insights"
	"github.com/skylarkwx/skylark/internal/weather"
	"github.com/skylarkwx/skylark/internal/websocket"
	"github.com/skylarkwx/skylark/pkg/logger"
)

// WeatherFetcher is the provider surface the dashboard depends on
type WeatherFetcher interface {
	FetchByCoordinates(ctx context.Context, lat, lon float64) (*weather.WeatherData, error)
	SearchLocations(ctx context.Context, query string) ([]weather.LocationSuggestion, error)
}

// Broadcaster pushes dashboard updates to connected clients
type Broadcaster interface {
	Broadcast(message *websocket.Message)
}

// Service owns the dashboard state machine. Every load operation is stamped
// with an increasing sequence number; a completion is applied only while its
// number is still the latest issued, so a slow response can never overwrite
// the result of a later request.
type Service struct {
	fetcher     WeatherFetcher
	locator     geolocate.Source
	engine      *insights.Engine
	broadcaster Broadcaster
	fallback    geolocate.Position
	logger      *logger.Logger

	// Service lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	// Dashboard state, guarded by mu
	mu          sync.RWMutex
	seq         uint64
	state       State
	coords      Coordinates
	coordsKnown bool
	data        *weather.WeatherData
	insightList []insights.Insight
	lastError   string
	stale       bool
	updatedAt   time.Time
}

// NewService creates a dashboard service. The broadcaster may be nil, in
// which case state changes are not pushed anywhere.
func NewService(fetcher WeatherFetcher, locator geolocate.Source, engine *insights.Engine, broadcaster Broadcaster, fallback geolocate.Position, log *logger.Logger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		fetcher:     fetcher,
		locator:     locator,
		engine:      engine,
		broadcaster: broadcaster,
		fallback:    fallback,
		logger:      log.Named("dashboard"),
		ctx:         ctx,
		cancel:      cancel,
		state:       StateIdle,
		insightList: []insights.Insight{},
		updatedAt:   time.Now().UTC(),
	}
}

// Start marks the service as running and issues the initial load for the
// device position
func (s *Service) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("Starting dashboard service",
		logger.Float64("fallback_lat", s.fallback.Lat),
		logger.Float64("fallback_lon", s.fallback.Lon))

	s.UseMyLocation()
	return nil
}

// Stop cancels in-flight work and waits for it to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info("Stopping dashboard service")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Dashboard service stopped")
	return nil
}

// UseMyLocation resolves the device position and loads weather for it. A
// failed lookup falls back to the configured default position; the dashboard
// still reaches the ready state and the lookup failure is never surfaced.
func (s *Service) UseMyLocation() uint64 {
	seq, ok := s.begin()
	if !ok {
		return 0
	}

	go func() {
		defer s.wg.Done()

		pos := s.fallback
		if s.locator != nil {
			resolved, err := s.locator.Locate(s.ctx)
			if err != nil {
				s.logger.Warn("Position lookup failed, using default location",
					logger.Error(err),
					logger.String("default", s.fallback.Label))
			} else {
				pos = resolved
			}
		}

		s.fetch(seq, Coordinates{Lat: pos.Lat, Lon: pos.Lon, Label: pos.Label})
	}()

	return seq
}

// UseCoordinates loads weather for an explicit position
func (s *Service) UseCoordinates(lat, lon float64, label string) (uint64, error) {
	if lat < -90 || lat > 90 {
		return 0, fmt.Errorf("invalid latitude: must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return 0, fmt.Errorf("invalid longitude: must be between -180 and 180")
	}

	seq, ok := s.begin()
	if !ok {
		return 0, nil
	}

	go func() {
		defer s.wg.Done()
		s.fetch(seq, Coordinates{Lat: lat, Lon: lon, Label: label})
	}()

	return seq, nil
}

// SelectLocation loads weather for a search suggestion using the coordinates
// carried by the suggestion itself
func (s *Service) SelectLocation(sugg weather.LocationSuggestion) (uint64, error) {
	label := sugg.Name
	if sugg.Country != "" {
		label = sugg.Name + ", " + sugg.Country
	}
	return s.UseCoordinates(sugg.Lat, sugg.Lon, label)
}

// Refresh reloads the currently loaded location. It reuses the exact
// coordinates of the last issued load and is only valid from the ready state.
func (s *Service) Refresh() (uint64, error) {
	s.mu.Lock()
	if !s.started || s.state != StateReady {
		s.mu.Unlock()
		return 0, ErrNotReady
	}
	s.seq++
	seq := s.seq
	coords := s.coords
	s.state = StateLoading
	s.updatedAt = time.Now().UTC()
	s.wg.Add(1)
	s.mu.Unlock()

	s.broadcastState()

	go func() {
		defer s.wg.Done()
		s.fetch(seq, coords)
	}()

	return seq, nil
}

// Retry re-issues the last attempted load. Unlike Refresh it is valid from
// the error state, which is where the retry action is offered.
func (s *Service) Retry() (uint64, error) {
	s.mu.Lock()
	if !s.started || !s.coordsKnown {
		s.mu.Unlock()
		return 0, ErrNothingToRetry
	}
	s.seq++
	seq := s.seq
	coords := s.coords
	s.state = StateLoading
	s.updatedAt = time.Now().UTC()
	s.wg.Add(1)
	s.mu.Unlock()

	s.broadcastState()

	go func() {
		defer s.wg.Done()
		s.fetch(seq, coords)
	}()

	return seq, nil
}

// SearchLocations proxies a location search to the weather provider
func (s *Service) SearchLocations(ctx context.Context, query string) ([]weather.LocationSuggestion, error) {
	return s.fetcher.SearchLocations(ctx, query)
}

// Snapshot returns the current dashboard state. Weather and Insights are
// immutable once published, so sharing them with callers is safe.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		State:      s.state,
		Weather:    s.data,
		Insights:   s.insightList,
		Stale:      s.stale,
		LastError:  s.lastError,
		RequestSeq: s.seq,
		UpdatedAt:  s.updatedAt,
	}
	if s.coordsKnown {
		coords := s.coords
		snap.Coordinates = &coords
	}
	return snap
}

// begin stamps a new load: bumps the sequence, enters loading, and reserves
// a slot in the wait group. Returns false once the service is stopped.
func (s *Service) begin() (uint64, bool) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return 0, false
	}
	s.seq++
	seq := s.seq
	s.state = StateLoading
	s.updatedAt = time.Now().UTC()
	s.wg.Add(1)
	s.mu.Unlock()

	s.broadcastState()
	return seq, true
}

// fetch records the coordinates for seq and performs the provider call.
// Both steps are skipped once a later load has been issued.
func (s *Service) fetch(seq uint64, coords Coordinates) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("Skipping superseded fetch",
			logger.Uint64("seq", seq),
			logger.Uint64("latest", s.seq))
		return
	}
	s.coords = coords
	s.coordsKnown = true
	s.mu.Unlock()

	s.logger.Debug("Fetching weather",
		logger.Uint64("seq", seq),
		logger.Float64("lat", coords.Lat),
		logger.Float64("lon", coords.Lon))

	data, err := s.fetcher.FetchByCoordinates(s.ctx, coords.Lat, coords.Lon)
	s.apply(seq, coords, data, err)
}

// apply publishes the outcome of a fetch, unless a later load superseded it
func (s *Service) apply(seq uint64, coords Coordinates, data *weather.WeatherData, err error) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded completion",
			logger.Uint64("seq", seq),
			logger.Uint64("latest", s.seq))
		return
	}

	now := time.Now().UTC()

	if err != nil {
		s.lastError = err.Error()
		if s.data != nil {
			// Keep showing the previous data, flagged as stale
			s.state = StateReady
			s.stale = true
		} else {
			s.state = StateError
		}
		state := s.state
		s.updatedAt = now
		s.mu.Unlock()

		s.logger.Warn("Weather fetch failed",
			logger.Uint64("seq", seq),
			logger.Float64("lat", coords.Lat),
			logger.Float64("lon", coords.Lon),
			logger.String("state", string(state)),
			logger.Error(err))
		s.broadcastState()
		return
	}

	s.data = data
	s.insightList = s.engine.Evaluate(data)
	s.state = StateReady
	s.stale = false
	s.lastError = ""
	s.updatedAt = now
	insightCount := len(s.insightList)
	s.mu.Unlock()

	s.logger.Info("Dashboard updated",
		logger.Uint64("seq", seq),
		logger.String("location", data.Location.Name),
		logger.Int("insights", insightCount))
	s.broadcastState()
}

// broadcastState pushes the current snapshot to all connected clients
func (s *Service) broadcastState() {
	if s.broadcaster == nil {
		return
	}

	payload, err := snapshotPayload(s.Snapshot())
	if err != nil {
		s.logger.Error("Failed to encode snapshot", logger.Error(err))
		return
	}

	s.broadcaster.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeDashboardUpdate,
		Data: payload,
	})
}

// snapshotPayload converts a snapshot to the generic message payload shape
func snapshotPayload(snap Snapshot) (map[string]any, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
