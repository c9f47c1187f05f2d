package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/skylarkwx/skylark/internal/briefing"
	"github.com/skylarkwx/skylark/internal/config"
	"github.com/skylarkwx/skylark/internal/dashboard"
	"github.com/skylarkwx/skylark/internal/websocket"
	"github.com/skylarkwx/skylark/pkg/logger"
)

// Router handles HTTP routing for the API
type Router struct {
	handler  *Handler
	config   *config.Config
	logger   *logger.Logger
	wsServer *websocket.Server
}

// NewRouter creates a new API router
func NewRouter(dashboardService *dashboard.Service, weatherClient dashboard.WeatherFetcher, briefingService *briefing.Service, config *config.Config, log *logger.Logger, wsServer *websocket.Server, version string) *Router {
	return &Router{
		handler:  NewHandler(dashboardService, weatherClient, briefingService, config, log, wsServer, version),
		config:   config,
		logger:   log.Named("api-router"),
		wsServer: wsServer,
	}
}

// Routes returns the HTTP handler with all routes configured
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(rt.config.Server.CORSAllowedOrigins))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", rt.handler.GetHealth)
		r.Get("/config", rt.handler.GetConfig)
		r.Get("/dashboard", rt.handler.GetDashboard)
		r.Post("/dashboard/locate", rt.handler.LocateDashboard)
		r.Post("/dashboard/location", rt.handler.SelectDashboardLocation)
		r.Post("/dashboard/refresh", rt.handler.RefreshDashboard)
		r.Get("/locations/search", rt.handler.SearchLocations)
		r.Get("/weather", rt.handler.GetWeather)
		r.Post("/briefing", rt.handler.GenerateBriefing)
		r.Get("/briefing", rt.handler.GetBriefing)
	})

	// WebSocket endpoint for live dashboard updates
	r.Get("/ws", rt.wsServer.HandleConnection)

	// Static files for the dashboard frontend
	staticHandler := NewStaticFileHandler(rt.config.Server.StaticFilesDir, rt.logger)
	r.Handle("/*", staticHandler)

	return r
}

// corsMiddleware sets CORS headers based on the configured allowed origins
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				if allowAll {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
