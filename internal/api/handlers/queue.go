package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/league-customs/internal/api/middleware"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/service"
)

type QueueHandler struct {
	queue   *service.QueueService
	matches *service.MatchService
}

func NewQueueHandler(queue *service.QueueService, matches *service.MatchService) *QueueHandler {
	return &QueueHandler{queue: queue, matches: matches}
}

type JoinQueueRequest struct {
	PrimaryLane   string `json:"primaryLane"`
	SecondaryLane string `json:"secondaryLane"`
}

// Join is the REST mirror of the queue_join frame.
func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	name, _ := middleware.GetSummonerName(r.Context())

	var req JoinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, err := h.queue.Join(r.Context(), name,
		domain.NormalizeLane(req.PrimaryLane), domain.NormalizeLane(req.SecondaryLane))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request) {
	name, _ := middleware.GetSummonerName(r.Context())
	if err := h.queue.Leave(r.Context(), name); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (h *QueueHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.queue.Status(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// MyActiveMatch finds the caller's single non-terminal match. The query
// parameter wins over the header so spectating tools can ask about
// anyone.
func (h *QueueHandler) MyActiveMatch(w http.ResponseWriter, r *http.Request) {
	name := domain.NormalizeSummonerName(r.URL.Query().Get("summonerName"))
	if name == "" {
		name, _ = middleware.GetSummonerName(r.Context())
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "summonerName required")
		return
	}
	m, err := h.matches.ActiveMatchFor(r.Context(), name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
