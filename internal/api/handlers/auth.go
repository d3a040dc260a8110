package handlers

import (
	"net/http"
	"time"

	"github.com/dom/league-customs/internal/api/middleware"
	"github.com/dom/league-customs/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session mints a bearer token bound to the caller's header identity.
// Mounted only when AUTH_SECRET is configured.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	name, ok := middleware.GetSummonerName(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity required")
		return
	}
	token, expiresAt, err := h.auth.IssueToken(name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Token: token, ExpiresAt: expiresAt})
}
