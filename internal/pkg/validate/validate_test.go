package validate

import (
	"testing"

	"github.com/market-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
)

type envelope struct {
	ReceiverID  int64  `json:"receiver_id" validate:"required,gt=0"`
	MessageType string `json:"message_type,omitempty" validate:"omitempty,oneof=text image"`
}

func TestStruct_ReportsJSONNames(t *testing.T) {
	err := Struct(envelope{MessageType: "video"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.EqualError(t, err, "receiver_id: required; message_type: oneof=text image: bad request")
}

func TestStruct_AcceptsPointers(t *testing.T) {
	assert.NoError(t, Struct(&envelope{ReceiverID: 3, MessageType: "image"}))
}
