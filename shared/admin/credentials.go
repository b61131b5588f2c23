// Package admin checks the configured demo admin credentials.
//
// There is exactly one admin account and it lives in private config. This
// is a demo gate for the dashboard, not a user system.
package admin

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Authenticator struct {
	username     string
	passwordHash []byte
}

func NewAuthenticator(username, passwordHash string) *Authenticator {
	return &Authenticator{username: username, passwordHash: []byte(passwordHash)}
}

// Check compares both values and always runs bcrypt so a wrong username
// costs as much as a wrong password.
func (a *Authenticator) Check(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a value for admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
