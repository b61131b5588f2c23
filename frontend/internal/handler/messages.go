package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	frontend_domain "github.com/itchan-dev/echobox/frontend/internal/domain"
	"github.com/itchan-dev/echobox/shared/dashboard"
	"github.com/itchan-dev/echobox/shared/domain"
	"github.com/itchan-dev/echobox/shared/logger"
	mw "github.com/itchan-dev/echobox/shared/middleware"
)

const (
	viewList = "list"
	viewGrid = "grid"
)

// dashboardFor returns the calling admin's dashboard. Sessions that outlive
// a restart get a fresh one.
func (h *Handler) dashboardFor(r *http.Request) *dashboard.Dashboard {
	session := mw.GetSessionFromContext(r)
	return h.Workspaces.Open(r.Context(), session.ID, session.ExpiresAt).Dashboard
}

// loadedDashboard is dashboardFor plus a first fetch when needed. A failed
// fetch leaves the dashboard empty, so lookups report not found.
func (h *Handler) loadedDashboard(r *http.Request) *dashboard.Dashboard {
	dash := h.dashboardFor(r)
	if err := ensureLoaded(r.Context(), dash); err != nil {
		logger.Log.Warn("failed to load messages", "error", err)
	}
	return dash
}

// ensureLoaded fetches once if the poller has not delivered a list yet.
func ensureLoaded(ctx context.Context, dash *dashboard.Dashboard) error {
	if !dash.RefreshedAt().IsZero() {
		return nil
	}
	_, err := dash.Refresh(ctx)
	return err
}

func parseMessagesQuery(r *http.Request) frontend_domain.MessagesQuery {
	v := r.URL.Query()
	q := frontend_domain.MessagesQuery{
		Unread: v.Get("unread") != "",
		Search: v.Get("q"),
		Sort:   string(dashboard.ParseSortOrder(v.Get("sort"))),
		View:   viewList,
	}
	if t, ok := domain.ParseType(v.Get("type")); ok {
		q.Type = string(t)
	}
	if v.Get("view") == viewGrid {
		q.View = viewGrid
	}
	return q
}

func queryFilters(q frontend_domain.MessagesQuery) (dashboard.Filters, dashboard.SortOrder) {
	return dashboard.Filters{
		Type:       domain.MessageType(q.Type),
		UnreadOnly: q.Unread,
		Search:     q.Search,
	}, dashboard.SortOrder(q.Sort)
}

func (h *Handler) MessagesGetHandler(w http.ResponseWriter, r *http.Request) {
	dash := h.dashboardFor(r)
	var errMsg string
	if err := ensureLoaded(r.Context(), dash); err != nil {
		errMsg = "Failed to load messages. Please try again."
	}

	q := parseMessagesQuery(r)
	filters, order := queryFilters(q)
	view := dash.View(filters, order, parsePage(r.URL.Query().Get("page")))

	data := frontend_domain.MessagesPageData{
		Messages:   make([]*frontend_domain.Message, len(view.Messages)),
		Page:       view.Page,
		TotalPages: view.TotalPages,
		Total:      view.Total,
		Unread:     dash.UnreadCount(),
		Types:      domain.AllTypes,
		Query:      q,
	}
	for i, m := range view.Messages {
		data.Messages[i] = h.renderMessage(m)
	}
	if at := dash.RefreshedAt(); !at.IsZero() {
		data.RefreshedAt = at.Local().Format("15:04:05")
	}
	h.renderTemplateStatus(w, r, "messages.html", data, errMsg, http.StatusOK)
}

func (h *Handler) RefreshPostHandler(w http.ResponseWriter, r *http.Request) {
	target := safeReturnPath(r.FormValue("return"), "/admin-messages")
	n, err := h.dashboardFor(r).Refresh(r.Context())
	if err != nil {
		h.redirectWithFlash(w, r, target, flashCookieError, "Failed to refresh messages. Please try again.")
		return
	}
	h.redirectWithFlash(w, r, target, flashCookieSuccess, fmt.Sprintf("%d messages loaded", n))
}

// MessageGetHandler shows one message and marks it as read on open.
func (h *Handler) MessageGetHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dash := h.dashboardFor(r)
	if err := ensureLoaded(r.Context(), dash); err != nil {
		http.Error(w, "Failed to load messages", http.StatusBadGateway)
		return
	}
	msg, ok := dash.Message(id)
	if !ok {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	var errMsg string
	if !msg.IsRead {
		if err := dash.MarkAsRead(r.Context(), id); err != nil {
			logger.Log.Warn("auto mark-as-read failed", "id", id, "error", err)
			errMsg = "Could not mark this message as read."
		} else {
			msg.IsRead = true
		}
	}
	h.renderTemplateStatus(w, r, "message.html", frontend_domain.MessagePageData{Message: h.renderMessage(msg)}, errMsg, http.StatusOK)
}

func (h *Handler) ReadPostHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	target := safeReturnPath(r.FormValue("return"), "/admin-messages")
	err := h.loadedDashboard(r).MarkAsRead(r.Context(), id)
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, target, flashCookieSuccess, "Marked as read.")
	case errors.Is(err, dashboard.ErrMessageNotFound):
		h.redirectWithFlash(w, r, "/admin-messages", flashCookieError, "Message not found.")
	default:
		logger.Log.Warn("mark-as-read failed", "id", id, "error", err)
		h.redirectWithFlash(w, r, target, flashCookieError, "Failed to mark message as read.")
	}
}

func (h *Handler) HidePostHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.loadedDashboard(r).HideFromView(id); err != nil {
		h.redirectWithFlash(w, r, "/admin-messages", flashCookieError, "Message not found.")
		return
	}
	h.redirectWithFlash(w, r, "/admin-messages", flashCookieSuccess, "Message hidden from this view.")
}
