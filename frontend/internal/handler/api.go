package handler

import (
	"net/http"

	"github.com/itchan-dev/echobox/shared/api"
	"github.com/itchan-dev/echobox/shared/utils"
)

// MessagesAPIHandler serves the same projection as the dashboard as JSON,
// for scripts holding a bearer token.
func (h *Handler) MessagesAPIHandler(w http.ResponseWriter, r *http.Request) {
	dash := h.dashboardFor(r)
	if err := ensureLoaded(r.Context(), dash); err != nil {
		http.Error(w, "Failed to load messages", http.StatusBadGateway)
		return
	}

	filters, order := queryFilters(parseMessagesQuery(r))
	view := dash.View(filters, order, parsePage(r.URL.Query().Get("page")))
	utils.WriteJSON(w, http.StatusOK, api.MessageListResponse{
		Messages:   view.Messages,
		Page:       view.Page,
		TotalPages: view.TotalPages,
		Total:      view.Total,
		Unread:     dash.UnreadCount(),
	})
}
