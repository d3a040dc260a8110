package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/dom/league-customs/internal/repository"
	"github.com/dom/league-customs/internal/service"
)

type AdminHandler struct {
	queue    *service.QueueService
	settings repository.SettingsRepository
}

func NewAdminHandler(queue *service.QueueService, settings repository.SettingsRepository) *AdminHandler {
	return &AdminHandler{queue: queue, settings: settings}
}

type AwardChampionshipRequest struct {
	SummonerName string `json:"summonerName"`
	Season       string `json:"season"`
}

// AwardChampionship accepts the request for the out-of-band ceremony
// tooling to pick up. Nothing in the match flow depends on it.
func (h *AdminHandler) AwardChampionship(w http.ResponseWriter, r *http.Request) {
	var req AwardChampionshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SummonerName == "" {
		writeError(w, http.StatusBadRequest, "summonerName required")
		return
	}
	log.Printf("Admin: championship award requested for %s (season %s)", req.SummonerName, req.Season)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type QueueToggleRequest struct {
	Active bool `json:"active"`
}

// SetQueueActive opens or closes the queue across all instances.
func (h *AdminHandler) SetQueueActive(w http.ResponseWriter, r *http.Request) {
	var req QueueToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.queue.SetActive(r.Context(), req.Active); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// PrivilegedVoters lists the configured extra-weight voters.
func (h *AdminHandler) PrivilegedVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.settings.GetPrivilegedVoters(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voters": voters})
}
