package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dom/league-customs/internal/api/middleware"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/registry"
)

type LCUHandler struct {
	registry *registry.Registry
}

func NewLCUHandler(reg *registry.Registry) *LCUHandler {
	return &LCUHandler{registry: reg}
}

type ConfigureLCURequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Password string `json:"password"`
}

// Configure records the caller's game-client connection details. The
// server never dials them; they ride along so the player's own gateway
// connection can proxy requests.
func (h *LCUHandler) Configure(w http.ResponseWriter, r *http.Request) {
	name, _ := middleware.GetSummonerName(r.Context())

	var req ConfigureLCURequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Port <= 0 || req.Password == "" {
		writeError(w, http.StatusBadRequest, "port and password required")
		return
	}
	if req.Host == "" {
		req.Host = "127.0.0.1"
	}
	if req.Protocol == "" {
		req.Protocol = "https"
	}

	creds := domain.LCUCredentials{
		Host:         req.Host,
		Port:         req.Port,
		Protocol:     req.Protocol,
		AuthToken:    req.Password,
		ConfiguredAt: time.Now().UTC(),
	}
	if err := h.registry.StoreLCUCredentials(r.Context(), name, creds); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "configured"})
}
