package domain

import "time"

// Attachment records an object uploaded for use in a chat message.
type Attachment struct {
	AttachmentID     string    `json:"id" dynamodbav:"attachment_id"`
	Object           string    `json:"object" dynamodbav:"object"`
	Size             int64     `json:"size" dynamodbav:"size"`
	ContentType      string    `json:"content_type" dynamodbav:"content_type"`
	Filename         string    `json:"filename" dynamodbav:"filename"`
	Hash             string    `json:"hash" dynamodbav:"hash"`
	MessageType      string    `json:"message_type" dynamodbav:"message_type"`
	URL              string    `json:"url" dynamodbav:"url"`
	UploadedByUserID int64     `json:"uploaded_by" dynamodbav:"uploaded_by_user_id"`
	CreatedAt        time.Time `json:"created_at" dynamodbav:"created_at"`
}
