package geolocate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skylarkwx/skylark/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:            baseURL,
		RequestTimeoutSecs: 5,
	}, logger.NewNop())
}

func TestLocate(t *testing.T) {
	t.Run("resolves position with combined label", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("fields"); got != "status,message,lat,lon,city,country" {
				t.Errorf("unexpected fields param: %s", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"success","lat":51.5074,"lon":-0.1278,"city":"London","country":"United Kingdom"}`))
		}))
		defer server.Close()

		pos, err := newTestClient(server.URL).Locate(context.Background())
		if err != nil {
			t.Fatalf("Locate failed: %v", err)
		}
		if pos.Lat != 51.5074 || pos.Lon != -0.1278 {
			t.Errorf("unexpected coordinates: %+v", pos)
		}
		if pos.Label != "London, United Kingdom" {
			t.Errorf("unexpected label: %s", pos.Label)
		}
	})

	t.Run("falls back to country when city is missing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"success","lat":46.8,"lon":8.2,"country":"Switzerland"}`))
		}))
		defer server.Close()

		pos, err := newTestClient(server.URL).Locate(context.Background())
		if err != nil {
			t.Fatalf("Locate failed: %v", err)
		}
		if pos.Label != "Switzerland" {
			t.Errorf("unexpected label: %s", pos.Label)
		}
	})

	t.Run("reports service-level failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"fail","message":"private range"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Locate(context.Background())
		var lookupErr *Error
		if !errors.As(err, &lookupErr) {
			t.Fatalf("expected *Error, got %T", err)
		}
	})

	t.Run("reports transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := newTestClient(server.URL).Locate(context.Background())
		var lookupErr *Error
		if !errors.As(err, &lookupErr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if lookupErr.Unwrap() == nil {
			t.Error("expected wrapped transport error")
		}
	})

	t.Run("reports malformed response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Locate(context.Background())
		var lookupErr *Error
		if !errors.As(err, &lookupErr) {
			t.Fatalf("expected *Error, got %T", err)
		}
	})

	t.Run("reports unexpected status code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Locate(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
