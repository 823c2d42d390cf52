package middleware

import (
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"acquisitions/internal/auth"
	apperrors "acquisitions/internal/errors"
	"acquisitions/internal/model"
	"acquisitions/internal/protect"
)

// QuotaTier is a named per-minute request allowance.
type QuotaTier struct {
	Name     string
	Max      int
	Interval time.Duration
	Message  string
}

// DefaultQuotaTiers maps each role to its allowance.
var DefaultQuotaTiers = map[model.Role]QuotaTier{
	model.RoleAdmin: {Name: "admin-rate-limit", Max: 20, Interval: time.Minute, Message: "Admin request limit exceeded. Slow down"},
	model.RoleUser:  {Name: "user-rate-limit", Max: 10, Interval: time.Minute, Message: "User request limit exceeded. Slow down"},
	model.RoleGuest: {Name: "guest-rate-limit", Max: 5, Interval: time.Minute, Message: "Guest request limit exceeded. Slow down"},
}

// apiTools identify clients whose bot verdicts are overridden so that
// development and integration traffic is not blocked.
var apiTools = regexp.MustCompile(`(?i)postmanruntime|insomnia|httpie|thunder client|bruno|hoppscotch`)

// SecurityConfig configures Security.
type SecurityConfig struct {
	Protector protect.Protector
	Store     protect.WindowStore
	// Tiers defaults to DefaultQuotaTiers.
	Tiers map[model.Role]QuotaTier
	// HealthPath is never checked.
	HealthPath string
}

type tierRule struct {
	tier QuotaTier
	rule protect.Rule
}

// Security applies bot, shield and role-based rate-limit decisions.
type Security struct {
	protector  protect.Protector
	tiers      map[model.Role]tierRule
	healthPath string
}

// NewSecurity builds the middleware. One sliding-window rule per tier is
// created up front; the set is not modified afterwards. Tier quotas are
// always enforced, whatever mode the protector's base rules run in.
func NewSecurity(cfg SecurityConfig) *Security {
	tiers := cfg.Tiers
	if tiers == nil {
		tiers = DefaultQuotaTiers
	}
	rules := make(map[model.Role]tierRule, len(tiers))
	for role, tier := range tiers {
		rules[role] = tierRule{
			tier: tier,
			rule: protect.SlidingWindow{
				Mode:     protect.ModeLive,
				Name:     tier.Name,
				Interval: tier.Interval,
				Max:      tier.Max,
				Store:    cfg.Store,
			},
		}
	}
	return &Security{protector: cfg.Protector, tiers: rules, healthPath: cfg.HealthPath}
}

func (s *Security) tierFor(id auth.Identity, authenticated bool) tierRule {
	role := model.RoleGuest
	if authenticated {
		role = id.Role
	}
	if tr, ok := s.tiers[role]; ok {
		return tr
	}
	return s.tiers[model.RoleGuest]
}

// Middleware returns the echo middleware. Requests to the health path and
// requests without a User-Agent header are internal traffic and skip all
// checks.
func (s *Security) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.URL.Path == s.healthPath || req.UserAgent() == "" {
				return next(c)
			}

			ctx := req.Context()
			id, authenticated := auth.IdentityFrom(ctx)
			tr := s.tierFor(id, authenticated)

			var extra []protect.Rule
			if tr.rule != nil {
				extra = append(extra, tr.rule)
			}
			decision, err := s.protector.Protect(ctx, protect.RequestFrom(req, c.RealIP()), extra...)
			if err != nil {
				slog.ErrorContext(ctx, "security middleware error", "error", err, "path", req.URL.Path)
				return apperrors.ErrProtection
			}

			if rl, ok := decision.RateLimit(); ok {
				c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Max))
				c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
			}

			if !decision.IsDenied() {
				return next(c)
			}

			attrs := []any{
				"decision_id", decision.ID,
				"ip", c.RealIP(),
				"user_agent", req.UserAgent(),
				"path", req.URL.Path,
				"method", req.Method,
			}

			switch {
			case decision.DeniedBy(protect.ReasonBot) && !apiTools.MatchString(req.UserAgent()):
				slog.WarnContext(ctx, "bot request blocked", attrs...)
				return c.JSON(http.StatusTooManyRequests, apperrors.ErrorResponse{
					Error:   "Too many requests",
					Message: "You have exceeded the request limit. Please try again later.",
					Code:    "BOT_DETECTED",
				})
			case decision.DeniedBy(protect.ReasonShield):
				slog.WarnContext(ctx, "shield request blocked", attrs...)
				return c.JSON(http.StatusTooManyRequests, apperrors.ErrorResponse{
					Error:   "Shield blocked",
					Message: "Shield blocked the request. Please try again later.",
					Code:    "SHIELD_BLOCKED",
				})
			case decision.DeniedBy(protect.ReasonRateLimit):
				rl, _ := decision.RateLimit()
				slog.WarnContext(ctx, "rate limit request blocked", append(attrs, "rule", rl.Rule)...)
				retryAfter := int(rl.ResetAfter.Round(time.Second) / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, apperrors.ErrorResponse{
					Error:   "Rate limit exceeded",
					Message: tr.tier.Message,
					Code:    "RATE_LIMITED",
				})
			}

			// only a bot verdict for a known API tool remains
			return next(c)
		}
	}
}
