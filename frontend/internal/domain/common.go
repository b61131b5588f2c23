package frontend_domain

import (
	"github.com/itchan-dev/echobox/shared/jwt"
)

// CommonTemplateData holds fields that are common to all page templates.
// Available in templates as .Common via the TemplateData wrapper.
type CommonTemplateData struct {
	Error      string
	Success    string
	Session    *jwt.Session // nil for visitors
	Validation ValidationData
	CSRFToken  string
}

func (c CommonTemplateData) IsAdmin() bool {
	return c.Session != nil
}

// ValidationData holds the limits the forms and counters show.
type ValidationData struct {
	MessageTextMaxLen int
	CaptionMaxLen     int

	MaxImageSize    int64
	MaxDocumentSize int64
	MaxAudioSize    int64

	AllowedImageMimeTypes    []string
	AllowedDocumentMimeTypes []string
	AllowedAudioMimeTypes    []string
}
