package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/skylarkwx/skylark/internal/geolocate"
	"github.com/skylarkwx/skylark/internal/weather"
	"github.com/skylarkwx/skylark/internal/websocket"
	"github.com/skylarkwx/skylark/pkg/logger"
)

func newTestHandler(fetcher *stubFetcher, locator geolocate.Source) (*WebSocketHandler, *Service) {
	svc := newTestService(fetcher, locator, nil)
	return NewWebSocketHandler(svc, logger.NewNop()), svc
}

func TestHandleUseMyLocationMessage(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		return weatherFor("Lisbon", lat, lon), nil
	})
	handler, svc := newTestHandler(fetcher, &stubLocator{pos: geolocate.Position{Lat: 38.72, Lon: -9.14, Label: "Lisbon, Portugal"}})
	defer svc.Stop()

	svc.Start()
	waitFor(t, "ready state", func() bool { return svc.Snapshot().State == StateReady })

	if err := handler.HandleMessage(nil, websocket.MessageTypeUseMyLocation, nil); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	waitFor(t, "second fetch", func() bool { return fetcher.callCount() == 2 })

	if got := fetcher.call(1); got.lat != 38.72 || got.lon != -9.14 {
		t.Errorf("unexpected fetch coordinates: %+v", got)
	}
}

func TestHandleSelectLocationMessage(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		return weatherFor("Oslo", lat, lon), nil
	})
	handler, svc := newTestHandler(fetcher, &stubLocator{pos: geolocate.Position{Lat: 1, Lon: 1}})
	defer svc.Stop()

	svc.Start()
	waitFor(t, "ready state", func() bool { return svc.Snapshot().State == StateReady })

	data := map[string]any{"lat": 59.9139, "lon": 10.7522, "name": "Oslo", "country": "Norway"}
	if err := handler.HandleMessage(nil, websocket.MessageTypeSelectLocation, data); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	waitFor(t, "selected location loaded", func() bool {
		snap := svc.Snapshot()
		return snap.State == StateReady && snap.Coordinates != nil && snap.Coordinates.Label == "Oslo, Norway"
	})

	if got := fetcher.call(1); got.lat != 59.9139 || got.lon != 10.7522 {
		t.Errorf("unexpected fetch coordinates: %+v", got)
	}
}

func TestHandleSelectLocationRejectsMalformedData(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		return weatherFor("X", lat, lon), nil
	})
	handler, svc := newTestHandler(fetcher, &stubLocator{pos: geolocate.Position{Lat: 1, Lon: 1}})
	defer svc.Stop()

	svc.Start()
	waitFor(t, "ready state", func() bool { return svc.Snapshot().State == StateReady })

	before := fetcher.callCount()
	err := handler.HandleMessage(nil, websocket.MessageTypeSelectLocation, map[string]any{"lat": "59.91", "lon": 10.75})
	if err == nil {
		t.Fatal("expected an error for non-numeric coordinates")
	}
	if fetcher.callCount() != before {
		t.Error("malformed selection must not issue a fetch")
	}
}

func TestHandleRefreshMessageFromReady(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		return weatherFor("Madrid", lat, lon), nil
	})
	handler, svc := newTestHandler(fetcher, &stubLocator{pos: geolocate.Position{Lat: 40.4, Lon: -3.7, Label: "Madrid"}})
	defer svc.Stop()

	svc.Start()
	waitFor(t, "ready state", func() bool { return svc.Snapshot().State == StateReady })

	if err := handler.HandleMessage(nil, websocket.MessageTypeRefreshRequest, nil); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	waitFor(t, "second fetch", func() bool { return fetcher.callCount() == 2 })

	if fetcher.call(0) != fetcher.call(1) {
		t.Errorf("refresh drifted: %+v vs %+v", fetcher.call(0), fetcher.call(1))
	}
}

func TestHandleRefreshMessageRetriesFromError(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		return nil, weather.NewNetworkError("request to weather provider failed", fmt.Errorf("connection refused"))
	})
	handler, svc := newTestHandler(fetcher, &stubLocator{pos: geolocate.Position{Lat: 10, Lon: 20}})
	defer svc.Stop()

	svc.Start()
	waitFor(t, "error state", func() bool { return svc.Snapshot().State == StateError })

	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		return weatherFor("Recovered", lat, lon), nil
	})

	// The page sends the same gesture for refresh and retry
	if err := handler.HandleMessage(nil, websocket.MessageTypeRefreshRequest, nil); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	waitFor(t, "recovery", func() bool { return svc.Snapshot().State == StateReady })

	if got := fetcher.call(1); got.lat != 10 || got.lon != 20 {
		t.Errorf("retry must reuse the failed coordinates: %+v", got)
	}
}

func TestHandleRefreshMessageIgnoredWhileLoading(t *testing.T) {
	release := make(chan struct{})
	fetcher := &stubFetcher{}
	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		<-release
		return weatherFor("Slow", lat, lon), nil
	})
	handler, svc := newTestHandler(fetcher, &stubLocator{pos: geolocate.Position{Lat: 1, Lon: 1}})
	defer svc.Stop()

	svc.Start()
	waitFor(t, "fetch in flight", func() bool { return fetcher.callCount() == 1 })

	if err := handler.HandleMessage(nil, websocket.MessageTypeRefreshRequest, nil); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if fetcher.callCount() != 1 {
		t.Error("refresh while loading must not issue another fetch")
	}

	close(release)
	waitFor(t, "ready state", func() bool { return svc.Snapshot().State == StateReady })
}

func TestHandleRefreshMessageBeforeStart(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		return weatherFor("X", lat, lon), nil
	})
	handler, svc := newTestHandler(fetcher, &stubLocator{pos: geolocate.Position{Lat: 1, Lon: 1}})
	defer svc.Stop()

	if err := handler.HandleMessage(nil, websocket.MessageTypeRefreshRequest, nil); err != nil {
		t.Fatalf("refresh before start must be ignored, got %v", err)
	}
	if fetcher.callCount() != 0 {
		t.Error("refresh before start must not issue a fetch")
	}
}

func TestHandleUnknownMessageType(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.setFetchFn(func(ctx context.Context, lat, lon float64) (*weather.WeatherData, error) {
		return weatherFor("X", lat, lon), nil
	})
	handler, svc := newTestHandler(fetcher, &stubLocator{pos: geolocate.Position{Lat: 1, Lon: 1}})
	defer svc.Stop()

	if err := handler.HandleMessage(nil, "bogus_type", map[string]any{"x": 1}); err != nil {
		t.Fatalf("unknown message types must be ignored, got %v", err)
	}
}
