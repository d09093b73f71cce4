package handlers

import (
	"net/http"

	"photobooth-api/internal/websocket"
)

// HandleWebSocket attaches a client to the notification hub.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "Notifications unavailable", http.StatusServiceUnavailable)
		return
	}
	websocket.ServeWS(h.hub, h.upgrader, w, r)
}
