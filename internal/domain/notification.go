package domain

import (
	"fmt"
	"time"
)

// Notification types.
const (
	NotificationOrder       = "order"
	NotificationAppointment = "appointment"
	NotificationMessage     = "message"
	NotificationSystem      = "system"
)

type Notification struct {
	NotificationID int64     `json:"id" dynamodbav:"notification_id"`
	UserID         int64     `json:"user_id" dynamodbav:"user_id"`
	Title          string    `json:"title" dynamodbav:"title"`
	Message        string    `json:"message" dynamodbav:"message"`
	Type           string    `json:"type" dynamodbav:"type"`
	RelatedID      *int64    `json:"related_id" dynamodbav:"related_id,omitempty"`
	IsRead         bool      `json:"is_read" dynamodbav:"is_read"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
}

// NewNotification is the input to NotificationStore.Create.
type NewNotification struct {
	UserID    int64  `json:"user_id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"required,max=255"`
	Message   string `json:"message" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=order appointment message system"`
	RelatedID *int64 `json:"related_id"`
}

func (n NewNotification) Validate() error {
	if n.UserID <= 0 {
		return fmt.Errorf("user_id is required: %w", ErrBadRequest)
	}
	if n.Title == "" || n.Message == "" {
		return fmt.Errorf("title and message are required: %w", ErrBadRequest)
	}
	switch n.Type {
	case NotificationOrder, NotificationAppointment, NotificationMessage, NotificationSystem:
	default:
		return fmt.Errorf("unknown notification type %q: %w", n.Type, ErrBadRequest)
	}
	return nil
}

func (n NewNotification) Build(id int64, now time.Time) *Notification {
	return &Notification{
		NotificationID: id,
		UserID:         n.UserID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
		RelatedID:      n.RelatedID,
		CreatedAt:      now.UTC(),
	}
}
