package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailpilot/internal/apperr"
	"mailpilot/internal/llm"
	"mailpilot/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// recordingGenerator captures the last request and answers with reply or err.
type recordingGenerator struct {
	calls int
	last  llm.Request
	reply string
	err   error
}

func (g *recordingGenerator) Generate(_ context.Context, req llm.Request, out any) error {
	g.calls++
	g.last = req
	if g.err != nil {
		return g.err
	}
	out.(*draftReply).Reply = g.reply
	return nil
}

func twoMessageThread() []model.ThreadMessage {
	sent := time.Date(2025, 3, 13, 17, 0, 0, 0, time.UTC)
	return []model.ThreadMessage{
		{From: "customer@shop.com", To: "support@acme.com", Subject: "Refund?", Body: "Can I return my order?", Date: &sent},
		{From: "support@acme.com", To: "customer@shop.com", Subject: "Re: Refund?", Body: "Let me check."},
	}
}

func newTestComposer(gen llm.Generator) *Composer {
	return NewComposer(gen, zap.NewNop(), WithClock(func() time.Time { return fixedNow }))
}

func TestCompose_KnowledgeReachesPrompt(t *testing.T) {
	gen := &recordingGenerator{reply: "Hi! Our refund window is 30 days."}
	c := newTestComposer(gen)

	res := c.Compose(context.Background(), Request{
		Messages:             twoMessageThread(),
		User:                 model.UserProfile{Email: "support@acme.com"},
		KnowledgeBaseContent: "Refund policy: 30 days",
	})

	require.True(t, res.OK())
	assert.Equal(t, "Hi! Our refund window is 30 days.", res.Reply)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.last.Prompt, "<knowledge_base>\nRefund policy: 30 days\n</knowledge_base>")
	assert.Equal(t, systemPrompt, gen.last.System)
	assert.Equal(t, "support@acme.com", gen.last.UserEmail)
	require.NotNil(t, gen.last.Schema)
	assert.Equal(t, []string{"reply"}, gen.last.Schema.Required)
}

func TestCompose_ReplyReturnedUnmodified(t *testing.T) {
	reply := "  Thanks for reaching out!\n\n[Link]  "
	gen := &recordingGenerator{reply: reply}
	res := newTestComposer(gen).Compose(context.Background(), Request{Messages: twoMessageThread()})

	require.True(t, res.OK())
	assert.Equal(t, reply, res.Reply)
}

func TestCompose_EmptyOptionalSections(t *testing.T) {
	gen := &recordingGenerator{reply: "Sure."}
	res := newTestComposer(gen).Compose(context.Background(), Request{Messages: twoMessageThread()})

	require.True(t, res.OK())
	prompt := gen.last.Prompt
	for _, tag := range []string{"<instructions>", "<userAbout>", "<knowledge_base>", "<historical_context>"} {
		assert.NotContains(t, prompt, tag)
	}
	assert.True(t, strings.HasPrefix(prompt, "Here is the context of the email thread (from oldest to newest):\n<email>"))
	assert.NotContains(t, prompt, "\n\n\n")
}

func TestCompose_SectionOrder(t *testing.T) {
	gen := &recordingGenerator{reply: "ok"}
	res := newTestComposer(gen).Compose(context.Background(), Request{
		Messages:             twoMessageThread(),
		User:                 model.UserProfile{Email: "support@acme.com", About: "I run support at Acme."},
		Instructions:         "Be brief.",
		KnowledgeBaseContent: "Refund policy: 30 days",
		EmailHistorySummary:  "Customer ordered twice before.",
	})
	require.True(t, res.OK())

	prompt := gen.last.Prompt
	markers := []string{
		"Additional user instructions:\n\n<instructions>\nBe brief.\n</instructions>",
		"Context about the user:\n\n<userAbout>\nI run support at Acme.\n</userAbout>",
		"Relevant knowledge base content:",
		"Historical email context:\n\n<historical_context>\nCustomer ordered twice before.\n</historical_context>",
		"Here is the context of the email thread (from oldest to newest):",
		"Please write a reply to the email.",
		"Today's date and time is: 2025-03-14T09:30:00Z.",
		"IMPORTANT: The person you're writing an email for is: customer@shop.com.",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(prompt, m)
		require.GreaterOrEqual(t, idx, 0, "missing %q", m)
		assert.Greater(t, idx, last, "%q out of order", m)
		last = idx
	}
	assert.True(t, strings.HasSuffix(prompt, "customer@shop.com."))
}

func TestCompose_MessageDates(t *testing.T) {
	gen := &recordingGenerator{reply: "ok"}
	newTestComposer(gen).Compose(context.Background(), Request{Messages: twoMessageThread()})

	prompt := gen.last.Prompt
	first := strings.Index(prompt, "<date>2025-03-13T17:00:00Z</date>")
	unknown := strings.Index(prompt, "<date>unknown</date>")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, unknown, 0)
	assert.Less(t, first, unknown)
}

func TestCompose_TruncatesLongMessages(t *testing.T) {
	gen := &recordingGenerator{reply: "ok"}
	c := NewComposer(gen, zap.NewNop(), WithClock(func() time.Time { return fixedNow }), WithMaxMessageChars(10))

	msgs := []model.ThreadMessage{{From: "a@x.com", To: "b@x.com", Subject: "s", Body: strings.Repeat("z", 50)}}
	res := c.Compose(context.Background(), Request{Messages: msgs})
	require.True(t, res.OK())
	assert.Contains(t, gen.last.Prompt, "<body>"+strings.Repeat("z", 10)+"...</body>")
	assert.NotContains(t, gen.last.Prompt, strings.Repeat("z", 11))
}

func TestCompose_SchemaFailureIsErrorVariant(t *testing.T) {
	gen := &recordingGenerator{err: fmt.Errorf("%w: missing required property %q", llm.ErrSchemaValidation, "reply")}
	res := newTestComposer(gen).Compose(context.Background(), Request{Messages: twoMessageThread()})

	require.False(t, res.OK())
	assert.Empty(t, res.Reply)
	assert.Equal(t, apperr.CodeDraftGeneration, res.Err.Code)
	assert.Equal(t, "failed to draft email using knowledge base", res.Err.Message)
	assert.ErrorIs(t, res.Err, llm.ErrSchemaValidation)
	assert.Equal(t, 1, gen.calls)
}

func TestCompose_EmptyReplyRejected(t *testing.T) {
	gen := &recordingGenerator{reply: "   "}
	res := newTestComposer(gen).Compose(context.Background(), Request{Messages: twoMessageThread()})

	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, llm.ErrSchemaValidation)
}

func TestCompose_GeneratorErrorNoRetry(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("rate limited")}
	res := newTestComposer(gen).Compose(context.Background(), Request{Messages: twoMessageThread()})

	require.False(t, res.OK())
	assert.Equal(t, 1, gen.calls)
}

func TestCompose_CanceledContext(t *testing.T) {
	gen := &recordingGenerator{reply: "never"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestComposer(gen).Compose(ctx, Request{Messages: twoMessageThread()})
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, gen.calls)
}

func TestCompose_NoMessages(t *testing.T) {
	gen := &recordingGenerator{reply: "x"}
	res := newTestComposer(gen).Compose(context.Background(), Request{KnowledgeBaseContent: "Refund policy: 30 days"})

	require.False(t, res.OK())
	assert.Equal(t, 0, gen.calls)
}
