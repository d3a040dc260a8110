package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dom/league-customs/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR [handlers] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleServiceError translates domain sentinels into HTTP statuses.
// Unknown errors stay opaque 500s.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidLane):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrNotParticipant):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, domain.ErrNotInQueue):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyQueued),
		errors.Is(err, domain.ErrAlreadyInMatch),
		errors.Is(err, domain.ErrQueueInactive),
		errors.Is(err, domain.ErrMatchTerminal),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrChampionAlreadyUsed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRegistryUnavailable),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrBroadcastFailed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("ERROR [handlers] unhandled service error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
