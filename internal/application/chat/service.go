package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/market-realtime/internal/domain"
)

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, n domain.NewMessage) (*domain.Message, error)
	History(ctx context.Context, userA, userB int64) ([]domain.Message, error)
	Conversations(ctx context.Context, userID int64) ([]int64, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, senderID, readerID int64) (int, error)
}

// NotificationCreator persists the companion notification of a new message.
type NotificationCreator interface {
	Create(ctx context.Context, n domain.NewNotification) (*domain.Notification, error)
}

// Fanout delivers a payload to whatever channels a user has open.
type Fanout interface {
	Fanout(ctx context.Context, userID int64, payload any) int
}

// Sender identifies the authenticated author of a message.
type Sender struct {
	UserID int64
	Name   string
}

// SendRequest is both the live envelope and the REST send body.
type SendRequest struct {
	ReceiverID    int64   `json:"receiver_id" validate:"required,gt=0"`
	Content       *string `json:"content"`
	AttachmentURL *string `json:"attachment_url" validate:"omitempty,max=2048"`
	MessageType   string  `json:"message_type" validate:"omitempty,oneof=text image file audio"`
	ReplyToID     *int64  `json:"reply_to_id" validate:"omitempty,gt=0"`
}

type Service interface {
	Send(ctx context.Context, sender Sender, req SendRequest) (*domain.Message, error)
	History(ctx context.Context, userID, peerID int64) ([]domain.Message, error)
	Conversations(ctx context.Context, userID int64) ([]int64, error)
	Messages(ctx context.Context, userID int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, readerID, senderID int64) (int, error)
}

// ServiceDeps groups the collaborators of the chat service.
type ServiceDeps struct {
	Messages      MessageStore
	Notifications NotificationCreator
	Dispatcher    Fanout
	Log           *slog.Logger
	Now           func() time.Time
}

type service struct {
	messages      MessageStore
	notifications NotificationCreator
	dispatcher    Fanout
	log           *slog.Logger
	now           func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		messages:      deps.Messages,
		notifications: deps.Notifications,
		dispatcher:    deps.Dispatcher,
		log:           deps.Log,
		now:           deps.Now,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Send persists a message, records a "New Message" notification for the
// receiver and pushes the stored message to both participants' channels.
// A failed notification is logged and never blocks the message.
func (s *service) Send(ctx context.Context, sender Sender, req SendRequest) (*domain.Message, error) {
	msg, err := s.messages.Create(ctx, domain.NewMessage{
		SenderID:      sender.UserID,
		ReceiverID:    req.ReceiverID,
		Content:       req.Content,
		AttachmentURL: req.AttachmentURL,
		MessageType:   req.MessageType,
		ReplyToID:     req.ReplyToID,
	})
	if err != nil {
		return nil, err
	}

	senderID := sender.UserID
	if _, err := s.notifications.Create(ctx, domain.NewNotification{
		UserID:    msg.ReceiverID,
		Title:     "New Message",
		Message:   fmt.Sprintf("You received a message from %s", displayName(sender)),
		Type:      domain.NotificationMessage,
		RelatedID: &senderID,
	}); err != nil {
		s.log.WarnContext(ctx, "create message notification", "message_id", msg.MessageID, "user_id", msg.ReceiverID, "err", err)
	}

	s.dispatcher.Fanout(ctx, msg.ReceiverID, msg)
	// A message to oneself already reached every device of the receiver.
	if msg.SenderID != msg.ReceiverID {
		s.dispatcher.Fanout(ctx, msg.SenderID, msg)
	}
	return msg, nil
}

func (s *service) History(ctx context.Context, userID, peerID int64) ([]domain.Message, error) {
	if peerID <= 0 {
		return nil, fmt.Errorf("invalid user id: %w", domain.ErrBadRequest)
	}
	return s.messages.History(ctx, userID, peerID)
}

func (s *service) Conversations(ctx context.Context, userID int64) ([]int64, error) {
	return s.messages.Conversations(ctx, userID)
}

func (s *service) Messages(ctx context.Context, userID int64) ([]domain.Message, error) {
	return s.messages.ListForUser(ctx, userID)
}

// MarkRead flags every unread message from senderID to readerID as read and
// sends senderID a read receipt. A store failure after some messages were
// flagged still sends the receipt, and the count so far is returned with the
// error.
func (s *service) MarkRead(ctx context.Context, readerID, senderID int64) (int, error) {
	if senderID <= 0 {
		return 0, fmt.Errorf("invalid sender id: %w", domain.ErrBadRequest)
	}
	n, err := s.messages.MarkRead(ctx, senderID, readerID)
	if err != nil && n == 0 {
		return 0, err
	}
	s.dispatcher.Fanout(ctx, senderID, domain.NewReadReceipt(readerID, s.now()))
	return n, err
}

func displayName(s Sender) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("user #%d", s.UserID)
}
