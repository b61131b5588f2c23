package handler

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
)

const (
	flashCookieError   = "flash_error"
	flashCookieSuccess = "flash_success"
	flashMaxAge        = 300
)

// setFlash stores a one-shot message for the next rendered page. Values are
// base64 encoded so any text survives the cookie.
func (h *Handler) setFlash(w http.ResponseWriter, name, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    base64.StdEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   h.Public.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears a flash cookie.
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Public.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	decoded, err := base64.StdEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(decoded)
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, targetURL, name, message string) {
	h.setFlash(w, name, message)
	http.Redirect(w, r, targetURL, http.StatusSeeOther)
}

func parsePage(s string) int {
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// safeReturnPath keeps redirects inside the dashboard.
func safeReturnPath(s, fallback string) string {
	if strings.HasPrefix(s, "/admin-messages") && !strings.HasPrefix(s, "//") {
		return s
	}
	return fallback
}
