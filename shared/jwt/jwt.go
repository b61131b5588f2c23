package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	internal_errors "github.com/itchan-dev/echobox/shared/errors"
	"github.com/itchan-dev/echobox/shared/logger"
)

// Session is an authenticated admin session carried by a signed token.
type Session struct {
	// ID is the token's jti. Per-session state is keyed by it.
	ID        string
	Username  string
	ExpiresAt time.Time
}

type JwtService interface {
	NewToken(username string) (string, *Session, error)
	DecodeToken(jwtStr string) (*Session, error)
}

type Jwt struct {
	secretKey string
	ttl       time.Duration
}

func New(secretKey string, ttl time.Duration) JwtService {
	return &Jwt{secretKey, ttl}
}

func (j *Jwt) NewToken(username string) (string, *Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		ExpiresAt: time.Now().Add(j.ttl).Truncate(time.Second),
	}
	claims := jwt.MapClaims{}
	claims["jti"] = session.ID
	claims["sub"] = session.Username
	claims["admin"] = true
	claims["exp"] = session.ExpiresAt.Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign session token", "error", err)
		return "", nil, errors.New("Can't create token")
	}
	return tokenString, session, nil
}

func (j *Jwt) DecodeToken(jwtStr string) (*Session, error) {
	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &internal_errors.ErrorWithStatusCode{Message: fmt.Sprintf("Unexpected signing method: %v", token.Header["alg"]), StatusCode: http.StatusUnauthorized}
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		logger.Log.Debug("session token rejected", "error", err)
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid token signature", StatusCode: http.StatusUnauthorized}
	}
	if !token.Valid {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, invalidClaims()
	}
	id, _ := claims["jti"].(string)
	username, _ := claims["sub"].(string)
	admin, _ := claims["admin"].(bool)
	exp, err := claims.GetExpirationTime()
	if id == "" || username == "" || !admin || err != nil || exp == nil {
		return nil, invalidClaims()
	}
	return &Session{ID: id, Username: username, ExpiresAt: exp.Time}, nil
}

func invalidClaims() error {
	return &internal_errors.ErrorWithStatusCode{Message: "Invalid token claims", StatusCode: http.StatusUnauthorized}
}
