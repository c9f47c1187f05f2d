package dashboard

import (
	"errors"
	"fmt"

	"github.com/skylarkwx/skylark/internal/weather"
	"github.com/skylarkwx/skylark/internal/websocket"
	"github.com/skylarkwx/skylark/pkg/logger"
)

// WebSocketHandler handles incoming WebSocket messages for the dashboard
type WebSocketHandler struct {
	service *Service
	logger  *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket message handler
func NewWebSocketHandler(service *Service, logger *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  logger.Named("dashboard-ws-handler"),
	}
}

// HandleMessage handles incoming WebSocket messages
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case websocket.MessageTypeDashboardRequest:
		return h.handleSnapshotRequest(client)
	case websocket.MessageTypeUseMyLocation:
		h.service.UseMyLocation()
		return nil
	case websocket.MessageTypeSelectLocation:
		return h.handleSelectLocation(data)
	case websocket.MessageTypeRefreshRequest:
		return h.handleRefresh()
	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return nil
	}
}

// handleSnapshotRequest sends the current snapshot to the requesting client
func (h *WebSocketHandler) handleSnapshotRequest(client *websocket.Client) error {
	h.logger.Debug("Handling snapshot request", logger.String("client_id", client.ID()))

	payload, err := snapshotPayload(h.service.Snapshot())
	if err != nil {
		h.logger.Error("Failed to encode snapshot", logger.Error(err))
		return err
	}

	message := &websocket.Message{
		Type: websocket.MessageTypeDashboardSnapshot,
		Data: payload,
	}

	// Send to specific client (not broadcast)
	if !client.SendMessage(message) {
		h.logger.Warn("Client send channel full, dropping snapshot",
			logger.String("client_id", client.ID()))
	}
	return nil
}

// handleSelectLocation loads weather for a location picked by the client
func (h *WebSocketHandler) handleSelectLocation(data map[string]any) error {
	lat, latOK := data["lat"].(float64)
	lon, lonOK := data["lon"].(float64)
	if !latOK || !lonOK {
		return fmt.Errorf("select_location requires numeric lat and lon")
	}

	sugg := weather.LocationSuggestion{Lat: lat, Lon: lon}
	if name, ok := data["name"].(string); ok {
		sugg.Name = name
	}
	if country, ok := data["country"].(string); ok {
		sugg.Country = country
	}

	if _, err := h.service.SelectLocation(sugg); err != nil {
		h.logger.Warn("Rejected location selection", logger.Error(err))
		return err
	}
	return nil
}

// handleRefresh reloads the current location. The same client gesture backs
// both the refresh button and the error-state retry action, so a refresh that
// is rejected while the dashboard shows an error becomes a retry.
func (h *WebSocketHandler) handleRefresh() error {
	_, err := h.service.Refresh()
	if !errors.Is(err, ErrNotReady) {
		return err
	}

	if h.service.Snapshot().State != StateError {
		// A load is already in flight or nothing is loaded yet
		h.logger.Debug("Ignoring refresh while not ready")
		return nil
	}

	if _, err := h.service.Retry(); err != nil && !errors.Is(err, ErrNothingToRetry) {
		return err
	}
	return nil
}
