// Package api provides HTTP handlers for live feed WebSocket subscriptions.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/feed"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/middleware"
)

// newUpgrader builds a WebSocket upgrader whose origin check mirrors
// the CORS allowlist. An empty allowlist permits all origins, matching
// the CORS middleware's development behavior.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin header
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// LiveFeedHandlers holds dependencies for the live feed WebSocket endpoint.
type LiveFeedHandlers struct {
	broadcaster *feed.Broadcaster
	upgrader    websocket.Upgrader
}

// NewLiveFeedHandlers creates a new LiveFeedHandlers instance.
func NewLiveFeedHandlers(broadcaster *feed.Broadcaster, allowedOrigins []string) *LiveFeedHandlers {
	return &LiveFeedHandlers{
		broadcaster: broadcaster,
		upgrader:    newUpgrader(allowedOrigins),
	}
}

// Subscribe handles WebSocket connections for real-time new-post events.
// GET /feed/live
//
// Anonymous connections are accepted; they receive every new-post
// event. Authenticated viewers are excluded from events for their own
// posts.
func (h *LiveFeedHandlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewerID := middleware.GetUserID(ctx)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	h.broadcaster.Subscribe(viewerID, conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client subscribed to live feed",
		"viewer_id", viewerID,
		"request_id", requestID,
	)

	defer func() {
		h.broadcaster.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "websocket client unsubscribed",
			"viewer_id", viewerID,
			"request_id", requestID,
		)
	}()

	// Keep connection alive - read messages to detect disconnection.
	// Clients are not expected to send anything.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"viewer_id", viewerID,
				)
			}
			break
		}
	}
}
