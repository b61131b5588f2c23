package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	frontend_domain "github.com/itchan-dev/echobox/frontend/internal/domain"
	"github.com/itchan-dev/echobox/frontend/internal/markdown"
	"github.com/itchan-dev/echobox/frontend/internal/middleware"
	"github.com/itchan-dev/echobox/shared/composer"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/logger"
	mw "github.com/itchan-dev/echobox/shared/middleware"
	"github.com/itchan-dev/echobox/shared/validation"
)

const previewLength = 140

// checkNotModified handles HTTP conditional GET requests using Last-Modified/If-Modified-Since.
// Returns true if a 304 Not Modified response was sent (caller should return early).
func checkNotModified(w http.ResponseWriter, r *http.Request, lastModified time.Time) bool {
	lastModified = lastModified.UTC().Truncate(time.Second)

	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("Vary", "Cookie")
	w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))

	if ifModifiedSince := r.Header.Get("If-Modified-Since"); ifModifiedSince != "" {
		if t, err := http.ParseTime(ifModifiedSince); err == nil {
			if !lastModified.After(t.UTC().Truncate(time.Second)) {
				w.WriteHeader(http.StatusNotModified)
				return true
			}
		}
	}
	return false
}

// TemplateData wraps page-specific data with common template data.
// Templates access page data via .Data and common data via .Common.
type TemplateData struct {
	Data   any
	Common frontend_domain.CommonTemplateData
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	h.renderTemplateStatus(w, r, name, data, "", http.StatusOK)
}

func (h *Handler) renderTemplateWithError(w http.ResponseWriter, r *http.Request, name string, data any, errMsg string, status int) {
	h.renderTemplateStatus(w, r, name, data, errMsg, status)
}

func (h *Handler) renderTemplateStatus(w http.ResponseWriter, r *http.Request, name string, data any, errMsg string, status int) {
	tmpl, ok := h.Templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("Template %s not found", name), http.StatusInternalServerError)
		return
	}

	common := h.initCommonTemplateData(w, r)
	if errMsg != "" {
		common.Error = errMsg
	}

	wrapped := TemplateData{
		Data:   data,
		Common: common,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, wrapped); err != nil {
		logger.Log.Error("error executing template", "template", name, "error", err)
		http.Error(w, "Internal Server Error rendering template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) initCommonTemplateData(w http.ResponseWriter, r *http.Request) frontend_domain.CommonTemplateData {
	return frontend_domain.CommonTemplateData{
		Error:      h.popFlash(w, r, flashCookieError),
		Success:    h.popFlash(w, r, flashCookieSuccess),
		Session:    mw.GetSessionFromContext(r),
		Validation: validationData(),
		CSRFToken:  middleware.GetCSRFTokenFromContext(r),
	}
}

func validationData() frontend_domain.ValidationData {
	image, _ := validation.RuleFor(validation.ContextImage)
	document, _ := validation.RuleFor(validation.ContextDocument)
	audio, _ := validation.RuleFor(validation.ContextAudio)
	return frontend_domain.ValidationData{
		MessageTextMaxLen:        composer.MaxTextLength,
		CaptionMaxLen:            composer.MaxCaptionLength,
		MaxImageSize:             image.MaxSize,
		MaxDocumentSize:          document.MaxSize,
		MaxAudioSize:             audio.MaxSize,
		AllowedImageMimeTypes:    image.AllowedMimes,
		AllowedDocumentMimeTypes: document.AllowedMimes,
		AllowedAudioMimeTypes:    audio.AllowedMimes,
	}
}

// renderMessage transforms a domain.Message into the dashboard view model.
func (h *Handler) renderMessage(message domain.Message) *frontend_domain.Message {
	rendered := &frontend_domain.Message{
		Message:   message,
		Body:      h.TextProcessor.Render(message.Content),
		Preview:   markdown.Preview(message.Content, previewLength),
		ShareLink: message.WhatsAppLink(),
	}
	if !message.CreatedAt.IsZero() {
		rendered.TimeLabel = message.CreatedAt.Local().Format("2006-01-02 15:04")
	}
	if message.HasMedia() {
		rendered.MediaURL = messagePath(message.Id) + "/media"
		if message.FileSize > 0 {
			rendered.SizeLabel = domain.FormatFileSize(message.FileSize)
		}
	}
	if message.Type == domain.TypeImage {
		rendered.ThumbnailURL = messagePath(message.Id) + "/thumb"
	}
	return rendered
}

func messagePath(id domain.MsgId) string {
	return "/admin-messages/" + url.PathEscape(id)
}
