package middleware

import (
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"acquisitions/internal/auth"
	apperrors "acquisitions/internal/errors"
	"acquisitions/internal/model"
)

// RequireRole allows only identities holding one of roles.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := auth.IdentityFrom(c.Request().Context())
			if !ok {
				return apperrors.ErrAuthRequired
			}
			for _, role := range roles {
				if id.Role == role {
					return next(c)
				}
			}
			slog.WarnContext(c.Request().Context(), "access denied",
				"user_id", id.ID, "role", id.Role, "path", c.Request().URL.Path)
			return apperrors.ErrForbidden
		}
	}
}

// RequireSelfOrAdmin allows admins, and users whose id equals the numeric
// route parameter param.
func RequireSelfOrAdmin(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := auth.IdentityFrom(c.Request().Context())
			if !ok {
				return apperrors.ErrAuthRequired
			}
			if id.IsAdmin() {
				return next(c)
			}
			requested, err := strconv.ParseUint(c.Param(param), 10, 64)
			if err != nil || uint(requested) != id.ID {
				slog.WarnContext(c.Request().Context(), "access denied",
					"user_id", id.ID, "requested", c.Param(param))
				return apperrors.ErrNotOwner
			}
			return next(c)
		}
	}
}
