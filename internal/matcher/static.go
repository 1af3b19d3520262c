package matcher

import (
	"regexp"
	"strings"

	"mailpilot/internal/model"
)

// matchStatic requires every populated From/Subject pattern to match.
// Empty patterns are wildcards. The Body pattern is intentionally not
// evaluated.
func matchStatic(rule *model.Rule, email model.Email) outcome {
	if !matchPattern(rule.From, email.From) {
		return outcome{}
	}
	if !matchPattern(rule.Subject, email.Subject) {
		return outcome{}
	}

	reason := "static: wildcard"
	if cond := rule.Condition(); cond != "" {
		reason = "static: " + cond
	}
	return outcome{matched: true, reason: reason}
}

// matchPattern reports whether value contains pattern, case-insensitively.
// A "*" in pattern matches any run of characters. An empty pattern matches
// everything.
func matchPattern(pattern, value string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
	}
	return globToRegexp(pattern).MatchString(value)
}

func globToRegexp(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("(?is)" + strings.Join(parts, ".*"))
}
