package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// TokenCookie is the cookie the session token travels in.
const TokenCookie = "token"

// SessionCarrier stores identity tokens in an HTTP-only cookie. Requests may
// also present the token as a bearer header; the cookie wins when both exist.
type SessionCarrier struct {
	secure bool
	maxAge time.Duration
}

// NewSessionCarrier creates a carrier whose cookie lives as long as the token.
func NewSessionCarrier(secure bool, maxAge time.Duration) *SessionCarrier {
	return &SessionCarrier{secure: secure, maxAge: maxAge}
}

// TokenLookup is the echo-jwt lookup expression for the carrier's locations.
func (s *SessionCarrier) TokenLookup() string {
	return "cookie:" + TokenCookie + "," + "header:" + echo.HeaderAuthorization + ":Bearer "
}

// Set writes the token cookie.
func (s *SessionCarrier) Set(c echo.Context, token string) {
	c.SetCookie(s.cookie(token, int(s.maxAge.Seconds())))
}

// Clear expires the token cookie.
func (s *SessionCarrier) Clear(c echo.Context) {
	c.SetCookie(s.cookie("", -1))
}

func (s *SessionCarrier) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
