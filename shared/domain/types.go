package domain

import "time"

type (
	MsgId    = string
	MsgText  = string
	MimeType = string
)

// MessageType is the kind of content a message carries.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeDocument MessageType = "document"
	TypeVoice    MessageType = "voice"
)

// wire name used by the gateway for voice messages
const wireAudio = "audio"

// AllTypes lists message types in the order the UI shows them.
var AllTypes = []MessageType{TypeText, TypeImage, TypeVoice, TypeDocument}

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeDocument, TypeVoice:
		return true
	}
	return false
}

// Wire returns the type name the gateway expects.
func (t MessageType) Wire() string {
	if t == TypeVoice {
		return wireAudio
	}
	return string(t)
}

// ParseWireType maps a gateway type name to a MessageType.
// Unknown names fall back to text.
func ParseWireType(s string) MessageType {
	switch s {
	case "text":
		return TypeText
	case "image":
		return TypeImage
	case "document":
		return TypeDocument
	case wireAudio:
		return TypeVoice
	default:
		return TypeText
	}
}

// ParseType parses a user-facing type name ("voice", not "audio").
func ParseType(s string) (MessageType, bool) {
	t := MessageType(s)
	return t, t.Valid()
}

// FileExtension is the extension used for synthesized download names.
func (t MessageType) FileExtension() string {
	switch t {
	case TypeImage:
		return "jpg"
	case TypeDocument:
		return "pdf"
	case TypeVoice:
		return "mp3"
	default:
		return ""
	}
}

// Clip is a finalized audio recording. It is never mutated after creation.
type Clip struct {
	Data     []byte
	MimeType MimeType
	Duration time.Duration
}

func (c *Clip) Size() int64 {
	if c == nil {
		return 0
	}
	return int64(len(c.Data))
}
