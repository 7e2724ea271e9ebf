package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewMessage_NormalizeDefaultsAndDropsEmpty(t *testing.T) {
	n := NewMessage{SenderID: 1, ReceiverID: 2, Content: strPtr(""), AttachmentURL: strPtr("/uploads/chat/a.png")}.Normalize()
	assert.Nil(t, n.Content)
	require.NotNil(t, n.AttachmentURL)
	assert.Equal(t, MessageTypeText, n.MessageType)
}

func TestNewMessage_Validate(t *testing.T) {
	cases := []struct {
		name string
		in   NewMessage
		ok   bool
	}{
		{"content only", NewMessage{SenderID: 1, ReceiverID: 2, Content: strPtr("hi")}, true},
		{"attachment only", NewMessage{SenderID: 1, ReceiverID: 2, AttachmentURL: strPtr("u"), MessageType: MessageTypeImage}, true},
		{"neither", NewMessage{SenderID: 1, ReceiverID: 2, Content: strPtr("")}, false},
		{"no receiver", NewMessage{SenderID: 1, Content: strPtr("hi")}, false},
		{"bad type", NewMessage{SenderID: 1, ReceiverID: 2, Content: strPtr("hi"), MessageType: "video"}, false},
		{"bad reply", NewMessage{SenderID: 1, ReceiverID: 2, Content: strPtr("hi"), ReplyToID: new(int64)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Normalize().Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrBadRequest)
			}
		})
	}
}

func TestNewMessage_Build(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	m := NewMessage{SenderID: 7, ReceiverID: 3, Content: strPtr("yo"), MessageType: MessageTypeText}.Build(42, now)

	assert.Equal(t, int64(42), m.MessageID)
	assert.False(t, m.IsRead)
	assert.Equal(t, "3#7", m.ConversationKey)
	assert.Equal(t, time.UTC, m.Timestamp.Location())
	assert.Equal(t, int64(3), m.Counterpart(7))
	assert.Equal(t, int64(7), m.Counterpart(3))
}

func TestConversationKey_IsSymmetric(t *testing.T) {
	assert.Equal(t, ConversationKey(1, 2), ConversationKey(2, 1))
	assert.NotEqual(t, ConversationKey(1, 2), ConversationKey(1, 3))
}

func TestNewNotification_Validate(t *testing.T) {
	ok := NewNotification{UserID: 9, Title: "New Order Received", Message: "m", Type: NotificationOrder}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Type = "promo"
	assert.ErrorIs(t, bad.Validate(), ErrBadRequest)

	bad = ok
	bad.UserID = 0
	assert.ErrorIs(t, bad.Validate(), ErrBadRequest)
}
