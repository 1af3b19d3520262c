package llm

import (
	"regexp"
	"strings"
	"time"
)

// DefaultMaxEmailChars bounds the body length of one email in a prompt.
const DefaultMaxEmailChars = 3000

// EmailForLLM is the subset of an email rendered into prompts.
type EmailForLLM struct {
	From    string
	To      string
	Subject string
	Body    string
}

var (
	blankLines = regexp.MustCompile(`\n\s*\n+`)
	spaceRuns  = regexp.MustCompile(`[ \t]{2,}`)
)

// StringifyEmail renders email as tagged fields. The body is whitespace
// collapsed and truncated to maxLength characters; maxLength <= 0 means no limit.
func StringifyEmail(email EmailForLLM, maxLength int) string {
	parts := []string{"<from>" + email.From + "</from>"}
	if email.To != "" {
		parts = append(parts, "<to>"+email.To+"</to>")
	}
	parts = append(parts,
		"<subject>"+email.Subject+"</subject>",
		"<body>"+Truncate(collapseWhitespace(email.Body), maxLength)+"</body>",
	)
	return strings.Join(parts, "\n")
}

// Truncate cuts s to at most max characters, marking the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TodayForLLM renders the current date marker used for temporal grounding.
func TodayForLLM(now time.Time) string {
	return "Today's date and time is: " + now.UTC().Format(time.RFC3339) + "."
}
