package handler

import (
	"net/http"
	"strings"

	frontend_domain "github.com/itchan-dev/echobox/frontend/internal/domain"
	"github.com/itchan-dev/echobox/shared/api"
	"github.com/itchan-dev/echobox/shared/logger"
	mw "github.com/itchan-dev/echobox/shared/middleware"
	"github.com/itchan-dev/echobox/shared/utils"
)

func (h *Handler) LoginGetHandler(w http.ResponseWriter, r *http.Request) {
	if mw.GetSessionFromContext(r) != nil {
		http.Redirect(w, r, "/admin-messages", http.StatusSeeOther)
		return
	}
	h.renderTemplate(w, r, "login.html", frontend_domain.LoginPageData{})
}

func (h *Handler) LoginPostHandler(w http.ResponseWriter, r *http.Request) {
	req := api.LoginRequest{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	page := frontend_domain.LoginPageData{Username: req.Username}

	if err := utils.Validate(req); err != nil {
		h.renderTemplateWithError(w, r, "login.html", page, "Username and password are required.", http.StatusBadRequest)
		return
	}
	if err := h.Admin.Check(req.Username, req.Password); err != nil {
		logger.Log.Warn("failed admin login", "username", req.Username)
		h.renderTemplateWithError(w, r, "login.html", page, "Invalid username or password.", http.StatusUnauthorized)
		return
	}

	token, session, err := h.Jwt.NewToken(req.Username)
	if err != nil {
		logger.Log.Error("failed to issue session token", "error", err)
		h.renderTemplateWithError(w, r, "login.html", page, "Internal error, please try again.", http.StatusInternalServerError)
		return
	}
	mw.SetSessionCookie(w, token, session, h.Public.SecureCookies)
	h.Workspaces.Open(r.Context(), session.ID, session.ExpiresAt)
	logger.Log.Info("admin logged in", "session", session.ID)

	http.Redirect(w, r, "/admin-messages", http.StatusSeeOther)
}

// LogoutHandler revokes the session token and drops the session's dashboard,
// including its hidden set.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if session := mw.GetSessionFromContext(r); session != nil {
		h.Revoked.Revoke(session.ID, session.ExpiresAt)
		h.Workspaces.Close(session.ID)
		logger.Log.Info("admin logged out", "session", session.ID)
	}
	mw.ClearSessionCookie(w, h.Public.SecureCookies)
	h.redirectWithFlash(w, r, "/admin-login", flashCookieSuccess, "You have been logged out.")
}
