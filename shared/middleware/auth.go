package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt_internal "github.com/itchan-dev/echobox/shared/jwt"
	"github.com/itchan-dev/echobox/shared/logger"
	"github.com/itchan-dev/echobox/shared/utils"
)

// SessionCookie holds the signed admin session token.
const SessionCookie = "adminSession"

// RevocationList reports sessions that were logged out before expiry.
type RevocationList interface {
	IsRevoked(sessionID string) bool
}

// Key to store the session in the request context
type key int

const SessionKey key = 0

// Auth holds dependencies for authentication middleware
type Auth struct {
	jwtService    jwt_internal.JwtService
	revoked       RevocationList
	secureCookies bool
}

func NewAuth(jwtService jwt_internal.JwtService, revoked RevocationList, secureCookies bool) *Auth {
	return &Auth{
		jwtService:    jwtService,
		revoked:       revoked,
		secureCookies: secureCookies,
	}
}

var (
	errNoToken = errors.New("no token")
	errRevoked = errors.New("session revoked")
)

// AdminOnly rejects requests without a valid, unrevoked admin session.
func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := a.extractSession(r)
			if err != nil {
				switch {
				case errors.Is(err, errNoToken):
					http.Error(w, "Please sign-in", http.StatusUnauthorized)
				case errors.Is(err, errRevoked):
					ClearSessionCookie(w, a.secureCookies)
					http.Error(w, "Session ended", http.StatusUnauthorized)
				default:
					utils.WriteErrorAndStatusCode(w, err)
				}
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth populates the session when the token is valid but never rejects.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, err := a.extractSession(r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), SessionKey, session))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractSession reads the token from the cookie (browsers) or the
// Authorization header (scripts polling the JSON feed).
func (a *Auth) extractSession(r *http.Request) (*jwt_internal.Session, error) {
	var tokenString string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		tokenString = cookie.Value
	} else if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	}
	if tokenString == "" {
		return nil, errNoToken
	}

	session, err := a.jwtService.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}
	if a.revoked != nil && a.revoked.IsRevoked(session.ID) {
		logger.Log.Debug("revoked session used", "session", session.ID)
		return nil, errRevoked
	}
	return session, nil
}

func SetSessionCookie(w http.ResponseWriter, token string, session *jwt_internal.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSessionFromContext returns the admin session, or nil outside AdminOnly/OptionalAuth.
func GetSessionFromContext(r *http.Request) *jwt_internal.Session {
	session, _ := r.Context().Value(SessionKey).(*jwt_internal.Session)
	return session
}
