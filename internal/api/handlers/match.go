package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/api/middleware"
	"github.com/dom/league-customs/internal/match"
	"github.com/dom/league-customs/internal/service"
)

type MatchHandler struct {
	matches     *service.MatchService
	coordinator *match.Coordinator
}

func NewMatchHandler(matches *service.MatchService, coordinator *match.Coordinator) *MatchHandler {
	return &MatchHandler{matches: matches, coordinator: coordinator}
}

func matchID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "matchId"))
	return id, err == nil
}

// Get serves the spectator-facing snapshot: the full row including the
// draft document.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	m, err := h.matches.GetMatch(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Cancel routes a participant cancellation to the owning instance and
// waits for the verdict.
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	name, _ := middleware.GetSummonerName(r.Context())
	if err := h.coordinator.RequestCancel(r.Context(), id, name, false); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type VoteRequest struct {
	LcuGameID string `json:"lcuGameId"`
}

// Vote is the REST mirror of the vote_for_match frame.
func (h *MatchHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	name, _ := middleware.GetSummonerName(r.Context())

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tally, err := h.matches.CastVote(r.Context(), id, name, req.LcuGameID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

type VotesResponse struct {
	Votes        map[string]int `json:"votes"`
	Leader       string         `json:"leader,omitempty"`
	QuorumTarget int            `json:"quorumTarget"`
}

func (h *MatchHandler) Votes(w http.ResponseWriter, r *http.Request) {
	id, ok := matchID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	tally, err := h.matches.ListVotes(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VotesResponse{
		Votes:        tally.Counts,
		Leader:       tally.Leader,
		QuorumTarget: tally.QuorumTarget,
	})
}
