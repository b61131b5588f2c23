package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/itchan-dev/echobox/shared/logger"
	"github.com/itchan-dev/echobox/shared/middleware/ratelimiter"
	"github.com/itchan-dev/echobox/shared/utils"
)

// KeyFunc names the bucket a request draws from.
type KeyFunc func(r *http.Request) (string, error)

// RateLimit answers 429 once key's bucket is empty. A key error is a
// server error: the request cannot be attributed.
func RateLimit(rl *ratelimiter.KeyedRateLimiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, err := key(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if rl.Allow(k) {
				next.ServeHTTP(w, r)
				return
			}
			logger.Log.Warn("rate limit exceeded", "path", r.URL.Path, "key", k)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many attempts, try again later", http.StatusTooManyRequests)
		})
	}
}

// GetIP keys by the peer address. Forwarding headers are ignored.
func GetIP(r *http.Request) (string, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) == nil {
		return "", fmt.Errorf("cannot key request by address %q", r.RemoteAddr)
	}
	return host, nil
}
