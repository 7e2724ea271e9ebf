package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/market-realtime/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthEnvelope is returned by the health check.
type HealthEnvelope struct {
	Message        string `json:"message"`
	ConnectedUsers int    `json:"connected_users"`
}

// MarkReadEnvelope is returned after flagging a conversation as read.
type MarkReadEnvelope struct {
	Status  string `json:"status"`
	Updated int    `json:"updated"`
}

// UploadEnvelope describes a stored attachment ready to be referenced by a message.
type UploadEnvelope struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	MessageType string `json:"message_type"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// httpError maps a service error onto a status code. Unexpected errors are
// logged and answered with a generic body.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
