package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStringifyEmail(t *testing.T) {
	out := StringifyEmail(EmailForLLM{
		From:    "alice@x.com",
		To:      "bob@y.com",
		Subject: "Hello",
		Body:    "Hi   Bob,\r\n\r\n\r\nSee you.",
	}, 0)

	assert.Equal(t, "<from>alice@x.com</from>\n<to>bob@y.com</to>\n<subject>Hello</subject>\n<body>Hi Bob,\n\nSee you.</body>", out)
}

func TestStringifyEmail_OmitsEmptyTo(t *testing.T) {
	out := StringifyEmail(EmailForLLM{From: "a", Subject: "s", Body: "b"}, 10)
	assert.NotContains(t, out, "<to>")
}

func TestStringifyEmail_TruncatesBody(t *testing.T) {
	out := StringifyEmail(EmailForLLM{Body: strings.Repeat("é", 50)}, 10)
	assert.Contains(t, out, "<body>"+strings.Repeat("é", 10)+"...</body>")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestTodayForLLM(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "Today's date and time is: 2026-03-04T04:06:07Z.", TodayForLLM(now))
}
