package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/feed"
)

// TestLiveFeed_ReceivesPostEvents tests the subscribe-broadcast loop
// over a real WebSocket connection.
func TestLiveFeed_ReceivesPostEvents(t *testing.T) {
	broadcaster := feed.NewBroadcaster()
	handlers := NewLiveFeedHandlers(broadcaster, nil)

	server := httptest.NewServer(http.HandlerFunc(handlers.Subscribe))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// Wait for the subscription to register
	deadline := time.Now().Add(2 * time.Second)
	for broadcaster.ConnectionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	broadcaster.BroadcastPost(&feed.PostEvent{
		Type:     feed.EventTypePostCreated,
		PostID:   "post1",
		AuthorID: "author1",
		Body:     "hot off the press",
		Tags:     []string{"news"},
	})

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read broadcast message: %v", err)
	}

	var event feed.PostEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.Type != feed.EventTypePostCreated || event.PostID != "post1" {
		t.Errorf("unexpected event: %+v", event)
	}
}

// TestLiveFeed_UnsubscribesOnClose tests connection cleanup.
func TestLiveFeed_UnsubscribesOnClose(t *testing.T) {
	broadcaster := feed.NewBroadcaster()
	handlers := NewLiveFeedHandlers(broadcaster, nil)

	server := httptest.NewServer(http.HandlerFunc(handlers.Subscribe))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for broadcaster.ConnectionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for broadcaster.ConnectionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never unsubscribed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestNewUpgrader_OriginAllowlist tests the origin check.
func TestNewUpgrader_OriginAllowlist(t *testing.T) {
	up := newUpgrader([]string{"https://app.example.com"})

	allowed := httptest.NewRequest(http.MethodGet, "/feed/live", nil)
	allowed.Header.Set("Origin", "https://app.example.com")
	if !up.CheckOrigin(allowed) {
		t.Error("expected allowlisted origin to pass")
	}

	denied := httptest.NewRequest(http.MethodGet, "/feed/live", nil)
	denied.Header.Set("Origin", "https://evil.example.com")
	if up.CheckOrigin(denied) {
		t.Error("expected unknown origin to be rejected")
	}

	// No Origin header means a non-browser client
	noOrigin := httptest.NewRequest(http.MethodGet, "/feed/live", nil)
	if !up.CheckOrigin(noOrigin) {
		t.Error("expected missing origin to pass")
	}

	// Empty allowlist permits everything
	openUp := newUpgrader(nil)
	if !openUp.CheckOrigin(denied) {
		t.Error("expected empty allowlist to permit any origin")
	}
}
