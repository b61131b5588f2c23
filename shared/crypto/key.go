// Package crypto generates the random secrets the frontend hands out: the
// jwt signing key and per-visitor CSRF tokens.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	keySize   = 32
	tokenSize = 32
)

// GenerateKey returns 32 random bytes, base64 encoded, for use as jwt_key.
func GenerateKey() (string, error) {
	raw, err := randomBytes(rand.Reader, keySize)
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// NewToken returns a URL-safe random token for double-submit CSRF checks.
func NewToken() (string, error) {
	raw, err := randomBytes(rand.Reader, tokenSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// TokensMatch compares in constant time. Empty tokens never match.
func TokensMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
