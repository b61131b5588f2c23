package handler

import (
	"net/http"

	frontend_domain "github.com/itchan-dev/echobox/frontend/internal/domain"
	"github.com/itchan-dev/echobox/shared/domain"
)

func (h *Handler) IndexGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, "index.html", frontend_domain.IndexPageData{Modes: domain.AllTypes})
}
