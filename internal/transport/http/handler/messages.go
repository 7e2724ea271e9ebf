package handler

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/market-realtime/internal/application/attachment"
	"github.com/market-realtime/internal/application/chat"
	"github.com/market-realtime/internal/pkg/validate"
	"github.com/market-realtime/internal/transport/http/middleware"
)

// MessageHandler serves the REST side of chat.
type MessageHandler struct {
	svc         chat.Service
	attachments attachment.Service
	maxUpload   int64
}

func NewMessageHandler(svc chat.Service, attachments attachment.Service, maxUpload int64) *MessageHandler {
	return &MessageHandler{svc: svc, attachments: attachments, maxUpload: maxUpload}
}

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	peers, err := h.svc.Conversations(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, peers)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	msgs, err := h.svc.Messages(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	peerID, err := int64Param(r, "user_id")
	if err != nil {
		httpError(w, err)
		return
	}
	msgs, err := h.svc.History(r.Context(), claims.UserID, peerID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	senderID, err := int64Param(r, "sender_id")
	if err != nil {
		httpError(w, err)
		return
	}
	n, err := h.svc.MarkRead(r.Context(), claims.UserID, senderID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkReadEnvelope{Status: "ok", Updated: n})
}

// Send is the REST fallback for clients without a live socket. It runs the
// same path as an inbound envelope but reports validation errors.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req chat.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	msg, err := h.svc.Send(r.Context(), chat.Sender{UserID: claims.UserID, Name: claims.Name}, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	// Room for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	a, err := h.attachments.Upload(r.Context(), attachment.UploadInput{
		Reader:     f,
		Filename:   header.Filename,
		UploaderID: claims.UserID,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadEnvelope{ID: a.AttachmentID, URL: a.URL, Filename: a.Filename, MessageType: a.MessageType})
}

// Attachment streams an uploaded file. It serves deployments whose object
// URLs are not directly fetchable and clients holding an expired presigned URL.
func (h *MessageHandler) Attachment(w http.ResponseWriter, r *http.Request) {
	a, body, err := h.attachments.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": a.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
