package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/skylarkwx/skylark/internal/ai"
	"github.com/skylarkwx/skylark/internal/ai/gemini"
	"github.com/skylarkwx/skylark/internal/ai/openai"
	"github.com/skylarkwx/skylark/internal/api"
	"github.com/skylarkwx/skylark/internal/briefing"
	"github.com/skylarkwx/skylark/internal/config"
	"github.com/skylarkwx/skylark/internal/dashboard"
	"github.com/skylarkwx/skylark/internal/geolocate"
	"github.com/skylarkwx/skylark/internal/insights"
	"github.com/skylarkwx/skylark/internal/weather"
	"github.com/skylarkwx/skylark/internal/websocket"
	"github.com/skylarkwx/skylark/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Skylark server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Create WebSocket server
	wsServer := websocket.NewServer(log)

	// Start WebSocket server
	go wsServer.Run()

	// Create weather provider client
	weatherClient := weather.NewClient(weather.ClientConfig{
		BaseURL:              cfg.Provider.BaseURL,
		APIKey:               cfg.Provider.APIKey,
		RequestTimeoutSecs:   cfg.Provider.RequestTimeoutSecs,
		ForecastDays:         cfg.Provider.ForecastDays,
		MaxRequestsPerMinute: cfg.Provider.MaxRequestsPerMinute,
	}, log)

	// Create position lookup client
	geoClient := geolocate.NewClient(geolocate.Config{
		BaseURL:            cfg.Geolocate.BaseURL,
		RequestTimeoutSecs: cfg.Geolocate.RequestTimeoutSecs,
	}, log)

	// Create the insight engine with the configured thresholds
	engine := insights.NewEngine(insights.Thresholds{
		HeatC:              cfg.Insights.HeatThresholdC,
		ColdC:              cfg.Insights.ColdThresholdC,
		WindKph:            cfg.Insights.WindThresholdKph,
		HumidityPct:        cfg.Insights.HumidityThresholdPct,
		HumidityTempFloorC: cfg.Insights.HumidityTempFloorC,
		UV:                 cfg.Insights.UVThreshold,
		RainChancePct:      cfg.Insights.RainChanceThresholdPct,
	})

	// Create dashboard service
	fallback := geolocate.Position{
		Lat:   cfg.Geolocate.DefaultLatitude,
		Lon:   cfg.Geolocate.DefaultLongitude,
		Label: cfg.Geolocate.DefaultLabel,
	}
	dashboardService := dashboard.NewService(weatherClient, geoClient, engine, wsServer, fallback, log)

	// Create and set WebSocket message handler for the dashboard
	wsHandler := dashboard.NewWebSocketHandler(dashboardService, log)
	wsServer.SetMessageHandler(wsHandler)

	// Start dashboard service (issues the initial load)
	if err := dashboardService.Start(); err != nil {
		log.Error("Failed to start dashboard service", logger.Error(err))
		os.Exit(1)
	}

	// Create briefing service (if enabled)
	var briefingService *briefing.Service
	if apiKey, ok := cfg.GetBriefingProvider(); ok {
		log.Info("Creating briefing service",
			logger.String("provider", cfg.Briefing.Provider),
			logger.String("model", cfg.Briefing.Model))

		timeout := time.Duration(cfg.Briefing.RequestTimeoutSecs) * time.Second
		var chatProvider ai.ChatProvider
		if cfg.Briefing.Provider == "openai" {
			chatProvider = openai.NewClient(apiKey, timeout, log)
		} else {
			chatProvider = gemini.NewClient(apiKey, timeout, log)
		}

		briefingService = briefing.NewService(briefing.Config{
			Model:        cfg.Briefing.Model,
			MaxTokens:    cfg.Briefing.MaxTokens,
			Temperature:  cfg.Briefing.Temperature,
			CooldownSecs: cfg.Briefing.CooldownSecs,
		}, chatProvider, dashboardService, wsServer, log)
	} else {
		log.Info("Briefing service disabled in configuration")
	}

	// Create API router
	router := api.NewRouter(dashboardService, weatherClient, briefingService, cfg, log, wsServer, Version)

	// --- Setup for multiple HTTP servers ---
	var servers []*http.Server
	allPorts := []int{cfg.Server.Port}
	if len(cfg.Server.AdditionalPorts) > 0 {
		allPorts = append(allPorts, cfg.Server.AdditionalPorts...)
	}

	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	// Start a server for each configured port
	for _, port := range allPorts {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		server := &http.Server{
			Addr:         addr,
			Handler:      router.Routes(), // All servers use the same main router
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Stop background services first
	log.Info("Stopping dashboard service...")
	if err := dashboardService.Stop(); err != nil {
		log.Error("Error stopping dashboard service", logger.Error(err))
	}
	log.Info("Dashboard service stopped.")

	log.Info("Stopping WebSocket server...")
	wsServer.Stop()
	log.Info("WebSocket server stopped.")

	// Shutdown all HTTP servers
	log.Info("Shutting down HTTP servers...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			log.Info("Attempting to shutdown HTTP server", logger.String("addr", srv.Addr))
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait()

	log.Info("All HTTP servers shutdown.")

	log.Info("Server fully stopped")
}
