package dynamo

// DynamoDB attribute and index names shared across repos.
const (
	fieldIsRead          = "is_read"
	fieldSeq             = "seq"
	fieldMessageID       = "message_id"
	fieldSenderID        = "sender_id"
	fieldReceiverID      = "receiver_id"
	fieldConversationKey = "conversation_key"
	fieldTimestamp       = "timestamp"
	fieldNotificationID  = "notification_id"
	fieldUserID          = "user_id"
	fieldCreatedAt       = "created_at"
	fieldAttachmentID    = "attachment_id"
	fieldCounterName     = "name"

	indexConversation      = "conversation_key-timestamp-index"
	indexSender            = "sender_id-timestamp-index"
	indexReceiver          = "receiver_id-timestamp-index"
	indexUserNotifications = "user_id-created_at-index"
)
