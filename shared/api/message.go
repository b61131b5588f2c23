package api

import (
	"encoding/json"

	"github.com/itchan-dev/echobox/shared/domain"
)

// Multipart field names of POST /add-message.
const (
	FieldType     = "type"
	FieldText     = "text"
	FieldImage    = "image"
	FieldDocument = "document"
	FieldAudio    = "audio"
)

// MessageStatusUnread is the only status the gateway reports for unread messages.
const MessageStatusUnread = "unread"

// MessageRecord is one element of GET /get-messages.
type MessageRecord struct {
	Id            json.Number `json:"id"`
	MessageType   string      `json:"messageType"`
	Text          *string     `json:"text"`
	Timestamp     string      `json:"timestamp"`
	MessageStatus string      `json:"messageStatus"`
	// Optional; synthesized by the client when absent.
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// Response DTOs

// MessageListResponse is served by the frontend's JSON feed.
type MessageListResponse struct {
	Messages   []domain.Message `json:"messages"`
	Page       int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
}
