package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/market-realtime/internal/domain"
)

// Page size used for list defaults and the mark-all response.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, n domain.NewNotification) (*domain.Notification, error)
	List(ctx context.Context, userID int64, offset, limit int) ([]domain.Notification, error)
	Get(ctx context.Context, notificationID int64) (*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID int64) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int, error)
}

// Fanout delivers a payload to whatever channels a user has open.
type Fanout interface {
	Fanout(ctx context.Context, userID int64, payload any) int
}

// Event is the live payload pushed when a notification is published.
type Event struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification"`
}

type Service interface {
	// Create persists a notification without pushing it.
	Create(ctx context.Context, n domain.NewNotification) (*domain.Notification, error)
	// Publish persists a notification and then pushes it to the recipient's
	// open channels. Workflows call it after committing their own transaction.
	Publish(ctx context.Context, n domain.NewNotification) (*domain.Notification, error)
	List(ctx context.Context, userID int64, offset, limit int) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID int64) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64) ([]domain.Notification, error)
}

type service struct {
	repo       Store
	dispatcher Fanout
	log        *slog.Logger
}

func NewService(repo Store, dispatcher Fanout, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, dispatcher: dispatcher, log: log}
}

func (s *service) Create(ctx context.Context, n domain.NewNotification) (*domain.Notification, error) {
	return s.repo.Create(ctx, n)
}

func (s *service) Publish(ctx context.Context, n domain.NewNotification) (*domain.Notification, error) {
	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, err
	}
	delivered := s.dispatcher.Fanout(ctx, created.UserID, Event{Type: "notification", Notification: created})
	s.log.DebugContext(ctx, "notification published", "notification_id", created.NotificationID, "user_id", created.UserID, "channels", delivered)
	return created, nil
}

func (s *service) List(ctx context.Context, userID int64, offset, limit int) ([]domain.Notification, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.repo.List(ctx, userID, offset, limit)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID int64) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("notification %d: %w", notificationID, domain.ErrForbidden)
	}
	if n.IsRead {
		return n, nil
	}
	return s.repo.MarkRead(ctx, notificationID)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID int64) ([]domain.Notification, error) {
	if _, err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID, 0, DefaultLimit)
}
