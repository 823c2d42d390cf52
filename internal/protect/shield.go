package protect

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

// shieldPatterns match request shapes that are hostile regardless of route:
// traversal, injection probes and scans for well-known sensitive files.
var shieldPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\.[/\\]`),
	regexp.MustCompile(`(?i)\bunion\b[\s/*+]+(all[\s/*+]+)?select\b`),
	regexp.MustCompile(`(?i)'\s*or\s*'?\d+'?\s*=\s*'?\d+`),
	regexp.MustCompile(`(?i);\s*(drop|truncate|delete|alter)\s+(table|database)\b`),
	regexp.MustCompile(`(?i)\b(sleep|benchmark|pg_sleep)\s*\(`),
	regexp.MustCompile(`(?i)<\s*script\b`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon(error|load)\s*=`),
	regexp.MustCompile(`(?i)/(\.env|\.git|\.aws|\.ssh)(/|$)`),
	regexp.MustCompile(`(?i)/(wp-admin|wp-login\.php|phpmyadmin|xmlrpc\.php)`),
	regexp.MustCompile(`(?i)/etc/(passwd|shadow)`),
}

// Shield denies requests whose path or query look like an attack.
type Shield struct {
	Mode Mode
}

// Evaluate implements Rule.
func (s Shield) Evaluate(_ context.Context, req Request) (RuleResult, error) {
	res := RuleResult{Rule: "shield", Reason: ReasonShield, Mode: s.Mode, Conclusion: Allow}
	if suspicious(req.Path) || suspicious(req.RawQuery) {
		res.Conclusion = Deny
	}
	return res, nil
}

func suspicious(raw string) bool {
	if raw == "" {
		return false
	}
	candidates := []string{raw}
	// Attack payloads are often percent- or double-encoded.
	decoded := raw
	for i := 0; i < 2; i++ {
		next, err := url.QueryUnescape(decoded)
		if err != nil || next == decoded {
			break
		}
		decoded = next
		candidates = append(candidates, decoded)
	}
	for _, c := range candidates {
		c = strings.ReplaceAll(c, "\x00", "")
		for _, p := range shieldPatterns {
			if p.MatchString(c) {
				return true
			}
		}
	}
	return false
}
