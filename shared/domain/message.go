package domain

import "time"

// Message is the client-side projection of a gateway message record.
// Messages are only ever created from a gateway fetch.
type Message struct {
	Id        MsgId       `json:"id"`
	Type      MessageType `json:"type"`
	Content   MsgText     `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	IsRead    bool        `json:"isRead"`
	FileURL   string      `json:"fileUrl,omitempty"`
	FileName  string      `json:"fileName,omitempty"`
	FileSize  int64       `json:"fileSize,omitempty"`
}

// HasMedia reports whether the message carries a file. A message of a type
// this client does not know is shown as text but keeps its file.
func (m *Message) HasMedia() bool {
	return m.Type != TypeText || m.FileURL != ""
}
