package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/market-realtime/internal/application/chat"
	"github.com/market-realtime/internal/domain"
	"github.com/market-realtime/internal/pkg/id"
	"github.com/market-realtime/internal/pkg/validate"
)

// inboxSize bounds the frames a session holds while the store is busy.
const inboxSize = 32

// session is one authenticated socket between register and unregister.
type session struct {
	h      *Handler
	conn   *websocket.Conn
	ch     *channel
	sender chat.Sender
	log    *slog.Logger
	inbox  chan chat.SendRequest

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func newSession(h *Handler, conn *websocket.Conn, sender chat.Sender) *session {
	ctx, cancel := context.WithCancelCause(h.base)
	s := &session{
		h:      h,
		conn:   conn,
		sender: sender,
		inbox:  make(chan chat.SendRequest, inboxSize),
		ctx:    ctx,
		cancel: cancel,
	}
	s.ch = newChannel(id.New(), h.cfg.SendBuffer, func() { cancel(errSlowConsumer) })
	s.log = h.log.With("user_id", sender.UserID, "channel_id", s.ch.ID())
	return s
}

func (s *session) run() {
	s.h.registry.Register(s.sender.UserID, s.ch)
	s.log.Info("channel open")
	defer func() {
		s.h.registry.Unregister(s.sender.UserID, s.ch)
		s.ch.close()
		s.log.Info("channel closed", "reason", context.Cause(s.ctx))
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()
	go func() {
		defer wg.Done()
		s.sendLoop()
	}()

	s.readLoop()
	s.cancel(errPeerGone)
	wg.Wait()
}

// readLoop queues inbound frames until the socket fails or is closed. It
// must keep reading while the store is slow, since pongs are only seen by a
// pending Read. It reads on a background context: cancelling a read would
// make the library close the socket itself, and writeLoop owns the close
// handshake.
func (s *session) readLoop() {
	defer close(s.inbox)
	for {
		_, data, err := s.conn.Read(context.Background())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if s.ctx.Err() == nil {
					s.log.Debug("read", "err", err)
				}
			}
			return
		}
		s.handleFrame(data)
	}
}

// handleFrame queues one envelope for sendLoop. Anything that does not parse
// or validate is dropped and the session carries on, as is a frame that
// arrives while the inbox is full.
func (s *session) handleFrame(data []byte) {
	var req chat.SendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.log.Debug("drop unparseable frame", "err", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.log.Debug("drop invalid frame", "err", err)
		return
	}
	select {
	case s.inbox <- req:
	default:
		s.log.Warn("drop frame, inbox full", "receiver_id", req.ReceiverID)
	}
}

// sendLoop persists and fans out queued envelopes in arrival order. Frames
// already queued when the peer leaves are still sent; only server shutdown
// aborts them.
func (s *session) sendLoop() {
	for req := range s.inbox {
		s.send(req)
	}
}

func (s *session) send(req chat.SendRequest) {
	msg, err := s.h.chat.Send(s.h.base, s.sender, req)
	switch {
	case err == nil:
		s.log.Debug("message sent", "message_id", msg.MessageID, "receiver_id", msg.ReceiverID)
	case errors.Is(err, domain.ErrBadRequest):
		s.log.Debug("drop rejected frame", "err", err)
	default:
		s.log.Error("send message", "receiver_id", req.ReceiverID, "err", err)
	}
}

// writeLoop drains the channel queue and keeps the connection alive with
// pings. When the session ends it performs the close handshake with a
// status that tells the client whether to reconnect.
func (s *session) writeLoop() {
	var ping <-chan time.Time
	if s.h.cfg.PingInterval > 0 {
		t := time.NewTicker(s.h.cfg.PingInterval)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case <-s.ctx.Done():
			s.closeConn()
			return
		case payload, ok := <-s.ch.out:
			if !ok {
				s.closeConn()
				return
			}
			if err := s.write(payload); err != nil {
				s.cancel(err)
				s.closeConn()
				return
			}
		case <-ping:
			if err := s.ping(); err != nil {
				s.cancel(err)
				s.closeConn()
				return
			}
		}
	}
}

func (s *session) write(payload []byte) error {
	ctx, cancel := s.writeContext()
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, payload)
}

func (s *session) ping() error {
	ctx, cancel := s.writeContext()
	defer cancel()
	return s.conn.Ping(ctx)
}

func (s *session) writeContext() (context.Context, context.CancelFunc) {
	if s.h.cfg.WriteTimeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.h.cfg.WriteTimeout)
}

func (s *session) closeConn() {
	code, reason := websocket.StatusNormalClosure, ""
	switch cause := context.Cause(s.ctx); {
	case errors.Is(cause, errSlowConsumer):
		code, reason = websocket.StatusTryAgainLater, "send buffer full"
	case s.h.base.Err() != nil:
		code, reason = websocket.StatusGoingAway, "server shutting down"
	}
	_ = s.conn.Close(code, reason)
}
