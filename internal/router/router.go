package router

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	apperrors "acquisitions/internal/errors"
	"acquisitions/internal/handler"
	appmiddleware "acquisitions/internal/middleware"
	"acquisitions/internal/model"
	"acquisitions/internal/validation"
)

// HealthPath is exempt from security checks.
const HealthPath = "/health"

// Handlers groups the route handlers and the middleware they depend on.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Health        *handler.HealthHandler
	Authenticator *appmiddleware.Authenticator
	Security      *appmiddleware.Security
}

// Register wires routes and middleware.
func Register(e *echo.Echo, h Handlers) {
	e.HideBanner = true
	// Forwarding headers are ignored unless the caller configured a trusted extractor.
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}
	e.Validator = validation.New()
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
				slog.String("remote_ip", v.RemoteIP),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(h.Authenticator.Identify())
	e.Use(h.Security.Middleware())

	e.GET(HealthPath, h.Health.Check)
	e.GET("/api", h.Health.Welcome)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authGroup := e.Group("/auth")
	authGroup.POST("/signup", h.Auth.SignUp)
	authGroup.POST("/signin", h.Auth.SignIn)
	authGroup.POST("/signout", h.Auth.SignOut)

	requireAuth := h.Authenticator.Require()
	adminOnly := appmiddleware.RequireRole(model.RoleAdmin)

	users := e.Group("/users", requireAuth)
	users.GET("/me", h.Users.GetMe)
	users.PATCH("/me", h.Users.UpdateMe)
	users.GET("", h.Users.ListUsers, adminOnly)
	users.GET("/:id", h.Users.GetUser, appmiddleware.RequireSelfOrAdmin("id"))
	users.PATCH("/:id", h.Users.UpdateUser, adminOnly)
	users.DELETE("/:id", h.Users.DeleteUser, adminOnly)
}

// ErrorHandler renders every error returned by handlers and middleware.
// Domain errors go through errors.MapErrorToHTTP; framework errors keep their
// status except 404 and 405, which both get the not-found body.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed {
			err = apperrors.ErrRouteNotFound
		} else {
			writeError(c, he.Code, apperrors.ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  "HTTP_ERROR",
			})
			return
		}
	}

	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"error", err,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
	}
	writeError(c, httpErr.StatusCode, httpErr.ToErrorResponse())
}

func writeError(c echo.Context, status int, body apperrors.ErrorResponse) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "write error response", "error", err)
	}
}
