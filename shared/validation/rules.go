package validation

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"

	"github.com/itchan-dev/echobox/shared/domain"
)

const mib = 1024 * 1024

// Context selects the size ceiling and MIME allow-list a file is checked against.
type Context string

const (
	ContextImage    Context = "image"
	ContextDocument Context = "document"
	ContextAudio    Context = "audio"
)

type Rule struct {
	MaxSize      int64
	AllowedMimes []string
}

var rules = map[Context]Rule{
	ContextImage:    {MaxSize: 5 * mib, AllowedMimes: []string{"image/jpeg", "image/png", "image/gif"}},
	ContextDocument: {MaxSize: 10 * mib, AllowedMimes: []string{"application/pdf"}},
	ContextAudio:    {MaxSize: 10 * mib, AllowedMimes: []string{"audio/mp3", "audio/mpeg", "audio/ogg", "audio/wav"}},
}

// RuleFor returns the limits for ctx.
func RuleFor(ctx Context) (Rule, error) {
	rule, ok := rules[ctx]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownContext, ctx)
	}
	return rule, nil
}

// ContextFor maps a message type to the intake context its file uses.
func ContextFor(t domain.MessageType) (Context, bool) {
	switch t {
	case domain.TypeImage:
		return ContextImage, true
	case domain.TypeDocument:
		return ContextDocument, true
	case domain.TypeVoice:
		return ContextAudio, true
	}
	return "", false
}

// Check validates size first, then type.
func Check(file *domain.PendingUpload, ctx Context) error {
	rule, err := RuleFor(ctx)
	if err != nil {
		return err
	}
	if file.Size > rule.MaxSize {
		return fmt.Errorf("%w: %s exceeds the maximum limit of %.0fMB", ErrFileTooLarge, file.Filename, FormatSizeMB(rule.MaxSize))
	}
	if !lo.Contains(rule.AllowedMimes, normalizeMime(file.MimeType)) {
		return fmt.Errorf("%w: %s (file: %s), allowed: %s", ErrUnsupportedType, file.MimeType, file.Filename, MimeTypeExtensions(rule.AllowedMimes))
	}
	return nil
}

// ResolveMimeType fills in a missing or generic declared type, first from the
// file extension and then by sniffing the content.
func ResolveMimeType(declared, filename string, head []byte) string {
	declared = normalizeMime(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := normalizeMime(mime.TypeByExtension(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	if len(head) > 0 {
		return normalizeMime(mimetype.Detect(head).String())
	}
	return declared
}

// MimeTypeExtensions renders "image/jpeg, image/png" as "jpeg, png".
func MimeTypeExtensions(mimeTypes []string) string {
	exts := lo.FilterMap(mimeTypes, func(m string, _ int) (string, bool) {
		_, sub, ok := strings.Cut(m, "/")
		return sub, ok
	})
	return strings.Join(lo.Uniq(exts), ", ")
}

func normalizeMime(m string) string {
	if m == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(m)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(m))
	}
	return mt
}
