// Package auth issues and validates the console's own session cookie. The
// cookie is a signed JWT carrying only the session id; the backend bearer
// token itself never leaves the session store.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the console session cookie.
const CookieName = "railboard_session"

// SessionExpiry is the lifetime of a console session.
const SessionExpiry = 24 * time.Hour

// Claims are the console cookie's JWT claims.
type Claims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieService signs and verifies console session cookies.
type CookieService struct {
	secret []byte
}

// NewCookieService creates a cookie service with the given signing secret.
func NewCookieService(secret string) *CookieService {
	return &CookieService{secret: []byte(secret)}
}

// Issue mints a cookie for a fresh session id and returns both.
func (s *CookieService) Issue() (*http.Cookie, string, error) {
	sid := uuid.New().String()
	now := time.Now()
	claims := &Claims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, "", err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(SessionExpiry),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, sid, nil
}

// Expire returns a cookie that removes the session cookie from the browser.
func (s *CookieService) Expire() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Validate verifies a cookie value and returns the session id it names.
func (s *CookieService) Validate(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SID == "" {
		return "", errors.New("invalid session cookie")
	}
	return claims.SID, nil
}

// Keyfunc exposes the signing key for echo-jwt middleware configuration.
func (s *CookieService) Keyfunc() interface{} {
	return s.secret
}

// NewClaims is the echo-jwt claims factory for the console cookie.
func NewClaims() jwt.Claims {
	return &Claims{}
}
