package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/itchan-dev/echobox/shared/crypto"
	"github.com/itchan-dev/echobox/shared/logger"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfCookieTTL  = 24 * 60 * 60

	// net/http's ParseMultipartForm default
	defaultMultipartMemory = 32 << 20
)

type csrfContextKey struct{}

type CSRFConfig struct {
	SecureCookies bool
}

// GenerateCSRFToken makes sure every visitor holds a double-submit token
// and exposes it to templates through the request context.
func GenerateCSRFToken(config CSRFConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(csrfCookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				var err error
				if token, err = crypto.NewToken(); err != nil {
					logger.Log.Error("failed to generate CSRF token", "error", err)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   config.SecureCookies,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   csrfCookieTTL,
				})
			}
			ctx := context.WithValue(r.Context(), csrfContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// parseForm parses url-encoded or multipart bodies. Multipart bodies are
// capped at maxBodySize when it is positive. The returned status is the one
// to answer with on error.
func parseForm(w http.ResponseWriter, r *http.Request, maxBodySize int64) (int, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.Form != nil {
			return 0, nil
		}
		if err := r.ParseForm(); err != nil {
			return http.StatusBadRequest, err
		}
		return 0, nil
	}

	memory := int64(defaultMultipartMemory)
	if maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		memory = maxBodySize
	}
	if err := r.ParseMultipartForm(memory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusBadRequest, err
	}
	return 0, nil
}

// ValidateCSRFToken rejects state-changing requests whose form token does
// not match the cookie. Zero maxBodySize leaves multipart bodies uncapped.
func ValidateCSRFToken(maxBodySize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil {
				logger.Log.Warn("CSRF token cookie missing", "path", r.URL.Path)
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			if status, err := parseForm(w, r, maxBodySize); err != nil {
				logger.Log.Warn("failed to parse form", "path", r.URL.Path, "error", err)
				if status == http.StatusRequestEntityTooLarge {
					http.Error(w, "Upload too large", status)
				} else {
					http.Error(w, "Invalid form data", status)
				}
				return
			}

			if !crypto.TokensMatch(cookie.Value, r.FormValue(csrfFormField)) {
				logger.Log.Warn("CSRF token validation failed", "path", r.URL.Path)
				http.Error(w, "CSRF token invalid", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetCSRFTokenFromContext returns the token set by GenerateCSRFToken.
func GetCSRFTokenFromContext(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey{}).(string)
	return token
}
