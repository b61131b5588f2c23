package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/itchan-dev/echobox/frontend/internal/thumbnail"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/logger"
	"github.com/itchan-dev/echobox/shared/validation"
)

func (h *Handler) mediaMessage(w http.ResponseWriter, r *http.Request) (domain.Message, bool) {
	id := chi.URLParam(r, "id")
	msg, ok := h.loadedDashboard(r).Message(id)
	if !ok || !msg.HasMedia() {
		http.Error(w, "Media not found", http.StatusNotFound)
		return domain.Message{}, false
	}
	return msg, true
}

// MediaGetHandler streams a message's file from the gateway as a download.
func (h *Handler) MediaGetHandler(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.mediaMessage(w, r)
	if !ok {
		return
	}

	media, err := h.Gateway.GetMedia(r.Context(), msg.Id)
	if err != nil {
		logger.Log.Warn("failed to fetch media", "id", msg.Id, "error", err)
		http.Error(w, "Media could not be loaded", http.StatusBadGateway)
		return
	}
	defer media.Body.Close()

	contentType := media.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if media.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(media.ContentLength, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": msg.FileName}))
	if _, err := io.Copy(w, media.Body); err != nil {
		logger.Log.Debug("media download interrupted", "id", msg.Id, "error", err)
	}
}

// ThumbnailGetHandler serves a scaled JPEG of an image message.
func (h *Handler) ThumbnailGetHandler(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.mediaMessage(w, r)
	if !ok {
		return
	}
	if msg.Type != domain.TypeImage {
		http.Error(w, "Media not found", http.StatusNotFound)
		return
	}
	if checkNotModified(w, r, msg.CreatedAt) {
		return
	}

	data, ok := h.Thumbnails.Get(msg.Id)
	if !ok {
		media, err := h.Gateway.GetMedia(r.Context(), msg.Id)
		if err != nil {
			logger.Log.Warn("failed to fetch media for thumbnail", "id", msg.Id, "error", err)
			http.Error(w, "Media could not be loaded", http.StatusBadGateway)
			return
		}
		defer media.Body.Close()

		rule, _ := validation.RuleFor(validation.ContextImage)
		data, err = thumbnail.Generate(io.LimitReader(media.Body, rule.MaxSize+1), thumbnail.DefaultMaxSide)
		if err != nil {
			logger.Log.Warn("failed to generate thumbnail", "id", msg.Id, "error", err)
			status := http.StatusInternalServerError
			if errors.Is(err, thumbnail.ErrMediaLoad) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, "Media could not be loaded", status)
			return
		}
		h.Thumbnails.Put(msg.Id, data)
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
