package handler

import (
	"errors"
	"net/http"
	"net/url"

	frontend_domain "github.com/itchan-dev/echobox/frontend/internal/domain"
	"github.com/itchan-dev/echobox/shared/composer"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/logger"
	"github.com/itchan-dev/echobox/shared/middleware/metrics"
	"github.com/itchan-dev/echobox/shared/validation"
)

const (
	// room for text fields and multipart overhead on top of the largest file
	formOverhead = 64 * 1024

	outcomeSent     = "sent"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// MaxSubmitSize caps the body of POST /submit.
func MaxSubmitSize() int64 {
	return validation.CalculateMaxRequestSize(formOverhead)
}

func (h *Handler) submitPage(mode domain.MessageType) frontend_domain.SubmitPageData {
	return frontend_domain.SubmitPageData{
		Mode:        mode,
		Modes:       domain.AllTypes,
		Placeholder: h.placeholder(),
	}
}

func parseMode(s string) domain.MessageType {
	if mode, ok := domain.ParseType(s); ok {
		return mode
	}
	return domain.TypeText
}

func (h *Handler) SubmitGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, "submit.html", h.submitPage(parseMode(r.URL.Query().Get("mode"))))
}

// SubmitPostHandler runs one Composer per request. Text fields are echoed
// back when the submit fails; files have to be selected again.
func (h *Handler) SubmitPostHandler(w http.ResponseWriter, r *http.Request) {
	if err := validation.ValidateAndParseMultipart(r, w, MaxSubmitSize()); err != nil {
		metrics.Submissions.WithLabelValues("unknown", outcomeRejected).Inc()
		h.renderTemplateWithError(w, r, "submit.html", h.submitPage(domain.TypeText),
			"The upload could not be read or is too large.", http.StatusRequestEntityTooLarge)
		return
	}

	mode := parseMode(r.FormValue("mode"))
	page := h.submitPage(mode)
	page.Text = r.FormValue("text")
	page.ImageCaption = r.FormValue("caption")
	page.DocumentDescription = r.FormValue("description")

	c := composer.New(h.Gateway, nil)
	if err := fillComposer(c, r, mode, page); err != nil {
		metrics.Submissions.WithLabelValues(string(mode), outcomeRejected).Inc()
		h.renderTemplateWithError(w, r, "submit.html", page, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	err := c.Submit(r.Context())
	switch {
	case err == nil:
		metrics.Submissions.WithLabelValues(string(mode), outcomeSent).Inc()
		h.redirectWithFlash(w, r, "/submit?mode="+url.QueryEscape(string(mode)), flashCookieSuccess, "Message sent!")
	case errors.Is(err, composer.ErrNoContent):
		metrics.Submissions.WithLabelValues(string(mode), outcomeRejected).Inc()
		h.renderTemplateWithError(w, r, "submit.html", page,
			"Please add some content before sending.", http.StatusUnprocessableEntity)
	default:
		metrics.Submissions.WithLabelValues(string(mode), outcomeFailed).Inc()
		logger.Log.Error("failed to submit message", "mode", mode, "error", err)
		h.renderTemplateWithError(w, r, "submit.html", page,
			"Failed to send message. Please try again.", http.StatusBadGateway)
	}
}

// fillComposer copies the form into c for the given mode. Only the active
// mode's fields are read.
func fillComposer(c *composer.Composer, r *http.Request, mode domain.MessageType, page frontend_domain.SubmitPageData) error {
	if err := c.SetMode(mode); err != nil {
		return err
	}
	switch mode {
	case domain.TypeText:
		return c.SetText(page.Text)
	case domain.TypeImage:
		if err := c.SetImageCaption(page.ImageCaption); err != nil {
			return err
		}
	case domain.TypeDocument:
		if err := c.SetDocumentDescription(page.DocumentDescription); err != nil {
			return err
		}
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		// Submit reports the missing content
		return nil
	}
	ctx, _ := validation.ContextFor(mode)
	file, err := validation.FromMultipart(r.MultipartForm.File["file"][0], ctx)
	if err != nil {
		return err
	}
	switch mode {
	case domain.TypeImage:
		return c.StageImage(file)
	case domain.TypeDocument:
		return c.StageDocument(file)
	case domain.TypeVoice:
		return c.StageVoice(file)
	}
	return nil
}
