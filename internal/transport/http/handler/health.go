package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PresenceCounter reports how many users currently have a live channel.
type PresenceCounter interface {
	Len() int
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	presence PresenceCounter
}

func NewHealthHandler(presence PresenceCounter) *HealthHandler {
	return &HealthHandler{presence: presence}
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	if action == "ping" {
		writeJSON(w, http.StatusOK, HealthEnvelope{Message: "pong", ConnectedUsers: h.presence.Len()})
		return
	}
	writeError(w, http.StatusBadRequest, "unknown action")
}
