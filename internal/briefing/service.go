package briefing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skylarkwx/skylark/internal/ai"
	"github.com/skylarkwx/skylark/internal/dashboard"
	"github.com/skylarkwx/skylark/internal/websocket"
	"github.com/skylarkwx/skylark/pkg/logger"
)

// ErrNoData is returned when a briefing is requested before any weather data
// has been loaded
var ErrNoData = errors.New("no weather data loaded yet")

// systemPrompt instructs the model on tone and length
const systemPrompt = "You are a weather assistant for a dashboard. Summarize the conditions below " +
	"in two to three conversational sentences. Mention anything a person should plan around today. " +
	"Plain text only, no markdown, no greetings."

// SnapshotProvider supplies the dashboard state a briefing is built from
type SnapshotProvider interface {
	Snapshot() dashboard.Snapshot
}

// Briefing is a generated natural-language weather summary
type Briefing struct {
	ID          string    `json:"id"`
	Location    string    `json:"location"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Config holds the briefing generation settings. It mirrors the briefing
// section of the application config.
type Config struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	CooldownSecs int
}

// Service generates weather briefings from the current dashboard snapshot.
// The last briefing is cached and reused within the cooldown window to keep
// repeated requests from burning provider quota.
type Service struct {
	config      Config
	provider    ai.ChatProvider
	dashboard   SnapshotProvider
	broadcaster dashboard.Broadcaster
	logger      *logger.Logger

	mu   sync.Mutex
	last *Briefing
}

// NewService creates a briefing service. The broadcaster may be nil.
func NewService(config Config, provider ai.ChatProvider, dash SnapshotProvider, broadcaster dashboard.Broadcaster, log *logger.Logger) *Service {
	return &Service{
		config:      config,
		provider:    provider,
		dashboard:   dash,
		broadcaster: broadcaster,
		logger:      log.Named("briefing"),
	}
}

// Generate returns a briefing for the currently loaded weather. Within the
// cooldown window the previous briefing for the same location is returned
// without calling the provider.
func (s *Service) Generate(ctx context.Context) (*Briefing, error) {
	snap := s.dashboard.Snapshot()
	if snap.Weather == nil {
		return nil, ErrNoData
	}
	location := snap.Weather.Location.Name

	s.mu.Lock()
	if s.last != nil && s.last.Location == location {
		age := time.Since(s.last.GeneratedAt)
		if age < time.Duration(s.config.CooldownSecs)*time.Second {
			cached := s.last
			s.mu.Unlock()
			s.logger.Debug("Returning cached briefing",
				logger.String("location", location),
				logger.Duration("age", age))
			return cached, nil
		}
	}
	s.mu.Unlock()

	messages := []ai.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(snap)},
	}

	text, err := s.provider.ChatCompletion(ctx, messages, ai.ChatConfig{
		Model:       s.config.Model,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		s.logger.Error("Briefing generation failed", logger.Error(err))
		return nil, fmt.Errorf("failed to generate briefing: %w", err)
	}

	result := &Briefing{
		ID:          uuid.NewString(),
		Location:    location,
		Text:        strings.TrimSpace(text),
		GeneratedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	s.logger.Info("Generated briefing",
		logger.String("id", result.ID),
		logger.String("location", location),
		logger.Int("length", len(result.Text)))

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeBriefingUpdate,
			Data: map[string]any{
				"id":           result.ID,
				"location":     result.Location,
				"text":         result.Text,
				"generated_at": result.GeneratedAt,
			},
		})
	}

	return result, nil
}

// Last returns the most recently generated briefing, or nil
func (s *Service) Last() *Briefing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// buildPrompt renders the snapshot into the user message for the model
func buildPrompt(snap dashboard.Snapshot) string {
	data := snap.Weather
	var b strings.Builder

	loc := data.Location.Name
	if data.Location.Country != "" {
		loc += ", " + data.Location.Country
	}
	fmt.Fprintf(&b, "Location: %s\n", loc)
	fmt.Fprintf(&b, "Current: %.0f°C (feels like %.0f°C), %s, humidity %d%%, wind %.0f km/h\n",
		data.Current.TempC, data.Current.FeelsLikeC, data.Current.Condition,
		data.Current.Humidity, data.Current.WindKph)

	if len(snap.Insights) > 0 {
		b.WriteString("Advisories:\n")
		for _, in := range snap.Insights {
			fmt.Fprintf(&b, "- [%s] %s\n", in.Severity, in.Message)
		}
	}

	if len(data.Forecast) > 0 {
		b.WriteString("Forecast:\n")
		days := data.Forecast
		if len(days) > 3 {
			days = days[:3]
		}
		for _, day := range days {
			fmt.Fprintf(&b, "- %s: %.0f to %.0f°C, %s, rain %d%%\n",
				day.Date, day.MinTempC, day.MaxTempC, day.Condition, day.ChanceOfRain)
		}
	}

	if len(data.Alerts) > 0 {
		b.WriteString("Active alerts:\n")
		for _, alert := range data.Alerts {
			fmt.Fprintf(&b, "- %s\n", alert.Event)
		}
	}

	if snap.Stale {
		b.WriteString("Note: this data is stale, the last refresh failed.\n")
	}

	return b.String()
}
