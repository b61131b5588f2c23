package frontend_domain

import (
	"html/template"

	"github.com/itchan-dev/echobox/shared/domain"
)

// Message wraps domain.Message with presentation fields.
type Message struct {
	domain.Message
	Body         template.HTML // rendered and sanitized content
	Preview      string
	SizeLabel    string
	TimeLabel    string
	ShareLink    string
	MediaURL     string // download proxy
	ThumbnailURL string // image messages only
}
