// Package protect decides whether a request may proceed. A Client evaluates
// a set of rules (request shielding, bot detection and sliding-window
// quotas) and folds their results into a single Decision.
package protect

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode controls whether a rule's denial is enforced.
type Mode string

const (
	// ModeLive enforces denials.
	ModeLive Mode = "LIVE"
	// ModeDryRun reports denials without enforcing them.
	ModeDryRun Mode = "DRY_RUN"
)

// ParseMode maps a configuration value to a Mode. Anything other than
// DRY_RUN is treated as LIVE.
func ParseMode(s string) Mode {
	if strings.EqualFold(s, string(ModeDryRun)) {
		return ModeDryRun
	}
	return ModeLive
}

// Conclusion is the verdict of a rule or a decision.
type Conclusion string

const (
	Allow Conclusion = "ALLOW"
	Deny  Conclusion = "DENY"
)

// Reason names the concern a rule guards.
type Reason string

const (
	ReasonShield    Reason = "SHIELD"
	ReasonBot       Reason = "BOT"
	ReasonRateLimit Reason = "RATE_LIMIT"
)

// Request is the part of an inbound HTTP request the rules look at.
type Request struct {
	IP        string
	Method    string
	Host      string
	Path      string
	RawQuery  string
	UserAgent string
}

// RequestFrom extracts a Request; ip is the resolved client address.
func RequestFrom(r *http.Request, ip string) Request {
	return Request{
		IP:        ip,
		Method:    r.Method,
		Host:      r.Host,
		Path:      r.URL.Path,
		RawQuery:  r.URL.RawQuery,
		UserAgent: r.UserAgent(),
	}
}

// RuleResult is one rule's verdict.
type RuleResult struct {
	Rule       string
	Reason     Reason
	Mode       Mode
	Conclusion Conclusion

	// Set by bot detection.
	Bot         string
	BotCategory BotCategory

	// Set by sliding-window rules.
	Max        int
	Remaining  int
	ResetAfter time.Duration
}

// Enforced reports whether the result denies the request in LIVE mode.
func (r RuleResult) Enforced() bool {
	return r.Conclusion == Deny && r.Mode == ModeLive
}

// Decision is the outcome of Protect.
type Decision struct {
	ID         string
	Conclusion Conclusion
	// Reason is the first enforced denial, empty when allowed.
	Reason  Reason
	Results []RuleResult
}

// IsDenied reports whether any rule enforced a denial.
func (d Decision) IsDenied() bool {
	return d.Conclusion == Deny
}

// DeniedBy reports whether a rule guarding reason enforced a denial.
func (d Decision) DeniedBy(reason Reason) bool {
	for _, r := range d.Results {
		if r.Reason == reason && r.Enforced() {
			return true
		}
	}
	return false
}

// RateLimit returns the most restrictive sliding-window result. Enforced
// denials win, then LIVE rules, then the lowest remaining allowance.
func (d Decision) RateLimit() (RuleResult, bool) {
	var (
		best  RuleResult
		found bool
	)
	for _, r := range d.Results {
		if r.Reason != ReasonRateLimit {
			continue
		}
		if !found || moreRestrictive(r, best) {
			best, found = r, true
		}
	}
	return best, found
}

func moreRestrictive(a, b RuleResult) bool {
	if a.Enforced() != b.Enforced() {
		return a.Enforced()
	}
	if (a.Mode == ModeLive) != (b.Mode == ModeLive) {
		return a.Mode == ModeLive
	}
	return a.Remaining < b.Remaining
}

// Rule is one protection concern.
type Rule interface {
	Evaluate(ctx context.Context, req Request) (RuleResult, error)
}

// Protector decides on requests.
type Protector interface {
	Protect(ctx context.Context, req Request, extra ...Rule) (Decision, error)
}

// Client evaluates a fixed set of base rules plus any per-call rules.
// It holds no mutable state of its own; counters live in the window store.
type Client struct {
	rules []Rule
}

var _ Protector = (*Client)(nil)

// NewClient creates a Client with the given base rules.
func NewClient(rules ...Rule) *Client {
	return &Client{rules: rules}
}

// Protect evaluates every base rule and every extra rule independently.
// Any rule error aborts the decision.
func (c *Client) Protect(ctx context.Context, req Request, extra ...Rule) (Decision, error) {
	rules := make([]Rule, 0, len(c.rules)+len(extra))
	rules = append(rules, c.rules...)
	rules = append(rules, extra...)

	decision := Decision{
		ID:         uuid.NewString(),
		Conclusion: Allow,
		Results:    make([]RuleResult, 0, len(rules)),
	}
	for _, rule := range rules {
		res, err := rule.Evaluate(ctx, req)
		if err != nil {
			return Decision{}, fmt.Errorf("protect: %w", err)
		}
		decision.Results = append(decision.Results, res)
		if res.Enforced() && decision.Conclusion == Allow {
			decision.Conclusion = Deny
			decision.Reason = res.Reason
		}
	}
	return decision, nil
}
