package feed

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PostEvent is the wire format for live feed notifications.
type PostEvent struct {
	Type      string    `json:"type"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// EventTypePostCreated marks a new post notification.
const EventTypePostCreated = "post.created"

// subscriber pairs a connection's viewer with its write lock. Gorilla
// permits at most one concurrent writer per connection, so every
// WriteMessage goes through mu.
type subscriber struct {
	viewerID string
	mu       sync.Mutex
}

// Broadcaster manages WebSocket connections and pushes new-post events
// to live feed subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	connections map[*websocket.Conn]*subscriber
}

// NewBroadcaster creates a new feed broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		connections: make(map[*websocket.Conn]*subscriber),
	}
}

// Subscribe registers a WebSocket connection for a viewer.
func (b *Broadcaster) Subscribe(viewerID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.connections[conn] = &subscriber{viewerID: viewerID}
}

// Unsubscribe removes a WebSocket connection.
func (b *Broadcaster) Unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.connections, conn)
}

// BroadcastPost sends a new-post event to all subscribers except the
// post's author.
func (b *Broadcaster) BroadcastPost(event *PostEvent) {
	// Serialize event once
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal post event", "error", err)
		return
	}

	b.mu.RLock()
	targets := make(map[*websocket.Conn]*subscriber, len(b.connections))
	for conn, sub := range b.connections {
		if sub.viewerID == event.AuthorID {
			continue
		}
		targets[conn] = sub
	}
	b.mu.RUnlock()

	for conn, sub := range targets {
		sub.mu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			slog.Warn("failed to send message to websocket client",
				"error", err,
				"viewer_id", sub.viewerID,
			)
			// Connection will be cleaned up when client disconnects
		}
	}
}

// ConnectionCount returns the number of active WebSocket connections.
func (b *Broadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.connections)
}
