package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]`)
	underscore = regexp.MustCompile(`_+`)
)

// SanitizeFilePrefix turns free text into a safe filename prefix:
// first 20 characters, trimmed, lowercased, non-alphanumerics to "_", runs collapsed.
func SanitizeFilePrefix(text string) string {
	runes := []rune(text)
	if len(runes) > 20 {
		runes = runes[:20]
	}
	s := strings.ToLower(strings.TrimSpace(string(runes)))
	s = nonAlnum.ReplaceAllString(s, "_")
	return underscore.ReplaceAllString(s, "_")
}

// SynthesizeFileName builds a download name for media messages that the
// gateway returns without one.
func SynthesizeFileName(t MessageType, id MsgId, text string) string {
	prefix := t.Wire()
	if text != "" {
		prefix = SanitizeFilePrefix(text)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, id, t.FileExtension())
}

// ShareText is the text placed in a share link for the message.
func (m *Message) ShareText() string {
	if m.Type == TypeText {
		return m.Content
	}
	if m.Content != "" {
		return fmt.Sprintf("%s (%s attachment)", m.Content, m.Type)
	}
	return fmt.Sprintf("%s attachment", m.Type)
}

// WhatsAppLink returns a wa.me link prefilled with ShareText.
func (m *Message) WhatsAppLink() string {
	return "https://wa.me/?text=" + url.QueryEscape(m.ShareText())
}

// FormatFileSize renders a byte count the way the upload area shows it.
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d bytes", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}

// FormatDuration renders a duration as mm:ss.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// for debug
func (m *Message) String() string {
	return fmt.Sprintf("[id:%s, type:%s, read:%t, created:%s, file:%s, content:%q]",
		m.Id, m.Type, m.IsRead, m.CreatedAt.Format(time.StampMilli), m.FileName, m.Content)
}
