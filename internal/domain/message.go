package domain

import (
	"fmt"
	"time"
)

// Message types accepted on the wire.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeAudio = "audio"
)

// Message is one persisted chat message between two users. It is also the
// outbound live payload.
type Message struct {
	MessageID       int64     `json:"id" dynamodbav:"message_id"`
	SenderID        int64     `json:"sender_id" dynamodbav:"sender_id"`
	ReceiverID      int64     `json:"receiver_id" dynamodbav:"receiver_id"`
	Content         *string   `json:"content" dynamodbav:"content,omitempty"`
	AttachmentURL   *string   `json:"attachment_url" dynamodbav:"attachment_url,omitempty"`
	MessageType     string    `json:"message_type" dynamodbav:"message_type"`
	ReplyToID       *int64    `json:"reply_to_id" dynamodbav:"reply_to_id,omitempty"`
	Timestamp       time.Time `json:"timestamp" dynamodbav:"timestamp"`
	IsRead          bool      `json:"is_read" dynamodbav:"is_read"`
	ConversationKey string    `json:"-" dynamodbav:"conversation_key"`
}

// NewMessage is the input to MessageStore.Create.
type NewMessage struct {
	SenderID      int64
	ReceiverID    int64
	Content       *string
	AttachmentURL *string
	MessageType   string
	ReplyToID     *int64
}

// Normalize drops empty optional strings and defaults the message type.
func (n NewMessage) Normalize() NewMessage {
	n.Content = nonEmpty(n.Content)
	n.AttachmentURL = nonEmpty(n.AttachmentURL)
	if n.MessageType == "" {
		n.MessageType = MessageTypeText
	}
	return n
}

// Validate enforces the message invariants. Call it on a normalized value.
func (n NewMessage) Validate() error {
	if n.SenderID <= 0 || n.ReceiverID <= 0 {
		return fmt.Errorf("sender and receiver are required: %w", ErrBadRequest)
	}
	if n.Content == nil && n.AttachmentURL == nil {
		return fmt.Errorf("content or attachment_url is required: %w", ErrBadRequest)
	}
	if !ValidMessageType(n.MessageType) {
		return fmt.Errorf("unknown message_type %q: %w", n.MessageType, ErrBadRequest)
	}
	if n.ReplyToID != nil && *n.ReplyToID <= 0 {
		return fmt.Errorf("invalid reply_to_id: %w", ErrBadRequest)
	}
	return nil
}

// Build materialises the message that will be persisted under id.
func (n NewMessage) Build(id int64, now time.Time) *Message {
	return &Message{
		MessageID:       id,
		SenderID:        n.SenderID,
		ReceiverID:      n.ReceiverID,
		Content:         n.Content,
		AttachmentURL:   n.AttachmentURL,
		MessageType:     n.MessageType,
		ReplyToID:       n.ReplyToID,
		Timestamp:       now.UTC(),
		IsRead:          false,
		ConversationKey: ConversationKey(n.SenderID, n.ReceiverID),
	}
}

// ValidMessageType reports whether t is one of the supported message types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio:
		return true
	}
	return false
}

// ConversationKey identifies the unordered pair {a, b}.
func ConversationKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d#%d", a, b)
}

// Counterpart returns the other participant of m as seen by userID.
func (m *Message) Counterpart(userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// ReadReceipt is pushed to a sender once the receiver has read their messages.
type ReadReceipt struct {
	Type      string    `json:"type"`
	ReaderID  int64     `json:"reader_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReadReceipt builds a read_receipt event for readerID.
func NewReadReceipt(readerID int64, now time.Time) ReadReceipt {
	return ReadReceipt{Type: "read_receipt", ReaderID: readerID, Timestamp: now.UTC()}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
