package handlers

import (
	"log"
	"net/http"

	"github.com/dom/league-customs/internal/service"
	"github.com/dom/league-customs/internal/websocket"
)

type WebSocketHandler struct {
	hub  *websocket.Hub
	auth *service.AuthService
}

func NewWebSocketHandler(hub *websocket.Hub, auth *service.AuthService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, auth: auth}
}

// Serve upgrades the connection. A ?token= bearer is pre-checked when
// auth is enabled so obviously bad clients fail before the upgrade; the
// identify frame still carries the authoritative token.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.auth != nil && h.auth.Enabled() {
		if token := r.URL.Query().Get("token"); token != "" {
			if _, err := h.auth.ValidateToken(token); err != nil {
				log.Printf("ERROR [handlers.WebSocket] token pre-check failed: %v", err)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
		}
	}
	h.hub.ServeWS(w, r)
}
