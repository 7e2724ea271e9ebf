// Package ws serves the live chat socket: it authenticates the connection,
// registers it for fanout and turns inbound envelopes into sent messages.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/market-realtime/internal/application/chat"
	"github.com/market-realtime/internal/config"
	"github.com/market-realtime/internal/domain"
	jwtinfra "github.com/market-realtime/internal/infrastructure/jwt"
	"github.com/market-realtime/internal/realtime"
)

// maxFrameBytes caps a single inbound frame.
const maxFrameBytes = 64 << 10

var (
	errSlowConsumer = errors.New("send buffer full")
	errPeerGone     = errors.New("peer closed")
)

// TokenVerifier checks the credential passed in the token query parameter.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// MessageSender is the part of the chat service a session needs.
type MessageSender interface {
	Send(ctx context.Context, sender chat.Sender, req chat.SendRequest) (*domain.Message, error)
}

type HandlerDeps struct {
	Verifier TokenVerifier
	Chat     MessageSender
	Registry *realtime.Registry
	Config   config.WebSocket
	Log      *slog.Logger
	// BaseContext ends every open session when cancelled.
	BaseContext context.Context
}

type Handler struct {
	verifier TokenVerifier
	chat     MessageSender
	registry *realtime.Registry
	cfg      config.WebSocket
	log      *slog.Logger
	base     context.Context
}

func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		verifier: deps.Verifier,
		chat:     deps.Chat,
		registry: deps.Registry,
		cfg:      deps.Config,
		log:      deps.Log,
		base:     deps.BaseContext,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.base == nil {
		h.base = context.Background()
	}
	if h.cfg.SendBuffer <= 0 {
		h.cfg.SendBuffer = 64
	}
	return h
}

// ServeHTTP upgrades the request. A missing or invalid token still completes
// the handshake and is then closed with 1008 so browsers can see the reason.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		h.log.Warn("websocket accept", "err", err)
		return
	}

	claims, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		h.log.Debug("websocket rejected", "err", err)
		conn.Close(websocket.StatusPolicyViolation, "authentication failed")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	newSession(h, conn, chat.Sender{UserID: claims.UserID, Name: claims.Name}).run()
}
