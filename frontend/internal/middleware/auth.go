package middleware

import (
	"encoding/base64"
	"net/http"

	mw "github.com/itchan-dev/echobox/shared/middleware"
)

const (
	flashCookieError = "flash_error"
	flashCookieTTL   = 300
	loginPath        = "/admin-login"
)

var loginMessages = map[int]string{
	http.StatusUnauthorized: "Please log in to continue",
	http.StatusForbidden:    "Access denied",
}

// Auth turns the shared middleware's 401/403 answers into a redirect to the
// login page carrying a flash message.
type Auth struct {
	shared        *mw.Auth
	secureCookies bool
}

func NewAuth(shared *mw.Auth, secureCookies bool) *Auth {
	return &Auth{shared: shared, secureCookies: secureCookies}
}

func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	guard := a.shared.AdminOnly()
	return func(next http.Handler) http.Handler {
		inner := guard(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inner.ServeHTTP(&loginRedirectWriter{ResponseWriter: w, req: r, secure: a.secureCookies}, r)
		})
	}
}

// OptionalAuth never rejects, so it needs no redirect.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return a.shared.OptionalAuth()
}

type loginRedirectWriter struct {
	http.ResponseWriter
	req        *http.Request
	secure     bool
	redirected bool
}

func (w *loginRedirectWriter) WriteHeader(status int) {
	if w.redirected {
		return
	}
	msg, ok := loginMessages[status]
	if !ok {
		w.ResponseWriter.WriteHeader(status)
		return
	}
	w.redirected = true
	http.SetCookie(w.ResponseWriter, &http.Cookie{
		Name:     flashCookieError,
		Value:    base64.StdEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		MaxAge:   flashCookieTTL,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w.ResponseWriter, w.req, loginPath, http.StatusSeeOther)
}

// Write drops the rejected handler's body once redirected.
func (w *loginRedirectWriter) Write(data []byte) (int, error) {
	if w.redirected {
		return len(data), nil
	}
	return w.ResponseWriter.Write(data)
}

func (w *loginRedirectWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok && !w.redirected {
		f.Flush()
	}
}
