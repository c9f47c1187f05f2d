package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/skylarkwx/skylark/pkg/logger"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []string
	replyTo  string
}

func (h *recordingHandler) HandleMessage(client *Client, messageType string, data map[string]any) error {
	h.mu.Lock()
	h.received = append(h.received, messageType)
	h.mu.Unlock()

	if h.replyTo != "" && messageType == h.replyTo {
		client.SendMessage(&Message{
			Type: MessageTypeDashboardSnapshot,
			Data: map[string]any{"state": "idle"},
		})
	}
	return nil
}

func (h *recordingHandler) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.received))
	copy(out, h.received)
	return out
}

func newTestHub(t *testing.T, handler MessageHandler) (*Server, string) {
	t.Helper()

	srv := NewServer(logger.NewNop())
	if handler != nil {
		srv.SetMessageHandler(handler)
	}
	go srv.Run()

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleConnection))
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})

	return srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dialTestClient(t *testing.T, url string) *gws.Conn {
	t.Helper()

	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBroadcastReachesAllClients(t *testing.T) {
	srv, url := newTestHub(t, nil)

	first := dialTestClient(t, url)
	second := dialTestClient(t, url)
	waitFor(t, "both clients registered", func() bool { return srv.ClientCount() == 2 })

	srv.Broadcast(&Message{Type: MessageTypeDashboardUpdate, Data: map[string]any{"state": "ready"}})

	for _, conn := range []*gws.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("client did not receive the broadcast: %v", err)
		}
		if msg.Type != MessageTypeDashboardUpdate {
			t.Errorf("unexpected message type: %s", msg.Type)
		}
		if state, _ := msg.Data["state"].(string); state != "ready" {
			t.Errorf("unexpected payload: %+v", msg.Data)
		}
	}
}

func TestIncomingMessagesDispatchToHandler(t *testing.T) {
	handler := &recordingHandler{}
	srv, url := newTestHub(t, handler)

	conn := dialTestClient(t, url)
	waitFor(t, "client registered", func() bool { return srv.ClientCount() == 1 })

	if err := conn.WriteJSON(Message{Type: MessageTypeRefreshRequest}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitFor(t, "handler invocation", func() bool {
		types := handler.types()
		return len(types) == 1 && types[0] == MessageTypeRefreshRequest
	})
}

func TestSnapshotReplyTargetsRequestingClient(t *testing.T) {
	handler := &recordingHandler{replyTo: MessageTypeDashboardRequest}
	srv, url := newTestHub(t, handler)

	asking := dialTestClient(t, url)
	other := dialTestClient(t, url)
	waitFor(t, "both clients registered", func() bool { return srv.ClientCount() == 2 })

	if err := asking.WriteJSON(Message{Type: MessageTypeDashboardRequest}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	asking.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Message
	if err := asking.ReadJSON(&reply); err != nil {
		t.Fatalf("requesting client did not receive a reply: %v", err)
	}
	if reply.Type != MessageTypeDashboardSnapshot {
		t.Errorf("unexpected reply type: %s", reply.Type)
	}

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("snapshot reply must not reach other clients")
	}
}

func TestMalformedMessageKeepsConnectionAlive(t *testing.T) {
	handler := &recordingHandler{}
	srv, url := newTestHub(t, handler)

	conn := dialTestClient(t, url)
	waitFor(t, "client registered", func() bool { return srv.ClientCount() == 1 })

	if err := conn.WriteMessage(gws.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.WriteJSON(Message{Type: MessageTypeUseMyLocation}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	waitFor(t, "valid message still dispatched", func() bool {
		types := handler.types()
		return len(types) == 1 && types[0] == MessageTypeUseMyLocation
	})
}

func TestStopDisconnectsClients(t *testing.T) {
	srv, url := newTestHub(t, nil)

	conn := dialTestClient(t, url)
	waitFor(t, "client registered", func() bool { return srv.ClientCount() == 1 })

	srv.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to be closed after Stop")
	}
	waitFor(t, "client count to drop", func() bool { return srv.ClientCount() == 0 })

	// Broadcast after stop must return without a receiver
	done := make(chan struct{})
	go func() {
		srv.Broadcast(&Message{Type: MessageTypeDashboardUpdate})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked after Stop")
	}
}
