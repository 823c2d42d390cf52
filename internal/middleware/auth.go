package middleware

import (
	"errors"
	"log/slog"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"acquisitions/internal/auth"
	apperrors "acquisitions/internal/errors"
)

const (
	claimsContextKey  = "token_claims"
	failureContextKey = "token_failure"
)

// TokenVerifier validates identity tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticator resolves the caller identity from the session token.
type Authenticator struct {
	verifier TokenVerifier
	carrier  *auth.SessionCarrier
}

// NewAuthenticator creates an Authenticator reading tokens where carrier stores them.
func NewAuthenticator(verifier TokenVerifier, carrier *auth.SessionCarrier) *Authenticator {
	return &Authenticator{verifier: verifier, carrier: carrier}
}

// Identify attaches the identity of a valid token to the request context and
// never rejects. Verification failures are kept for Require.
func (a *Authenticator) Identify() echo.MiddlewareFunc {
	parse := echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsContextKey,
		TokenLookup: a.carrier.TokenLookup(),
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := a.verifier.Verify(token)
			if err != nil {
				c.Set(failureContextKey, err)
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
		ContinueOnIgnoredError: true,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return parse(func(c echo.Context) error {
			if claims, ok := c.Get(claimsContextKey).(*auth.Claims); ok {
				req := c.Request()
				c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), claims.Identity())))
			}
			return next(c)
		})
	}
}

// Require rejects requests without an identity. Missing tokens and rejected
// tokens produce different 401 messages; expired and invalid tokens share
// one and are told apart only in the log.
func (a *Authenticator) Require() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := auth.IdentityFrom(c.Request().Context()); ok {
				return next(c)
			}

			failure, _ := c.Get(failureContextKey).(error)
			switch {
			case failure == nil:
				slog.WarnContext(c.Request().Context(), "authentication failed", "kind", "missing", "path", c.Path())
				return apperrors.ErrTokenMissing
			case errors.Is(failure, auth.ErrExpiredToken):
				slog.WarnContext(c.Request().Context(), "authentication failed", "kind", "expired", "path", c.Path())
			default:
				slog.WarnContext(c.Request().Context(), "authentication failed", "kind", "invalid", "path", c.Path(), "error", failure)
			}
			return apperrors.ErrTokenRejected
		}
	}
}
