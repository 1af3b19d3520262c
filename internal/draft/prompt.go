package draft

import (
	"strings"
	"time"

	"mailpilot/internal/llm"
	"mailpilot/internal/model"
)

const systemPrompt = `You are an expert assistant that drafts email replies using knowledge base information.
Write a polite and professional email that follows up on the previous conversation.
Keep it concise and friendly. Don't be pushy.
Use context from the previous emails and the provided knowledge base to make it relevant and accurate.
Don't mention that you're an AI.
Don't reply with a Subject. Only reply with the body of the email.
Keep it short.

IMPORTANT: Use placeholders sparingly! Only use them where you have limited information.
Never use placeholders for the user's name. You do not need to sign off with the user's name. Do not add a signature.
Do not invent information. For example, DO NOT offer to meet someone at a specific time as you don't know what time the user is available.`

// promptInput is everything a section renderer may read.
type promptInput struct {
	req             Request
	now             time.Time
	maxMessageChars int
}

// section is one optional block of the user prompt.
type section struct {
	name    string
	include func(in promptInput) bool
	render  func(in promptInput) string
}

// sections lists the prompt blocks in the order they appear.
var sections = []section{
	{
		name:    "instructions",
		include: func(in promptInput) bool { return present(in.req.Instructions) },
		render: func(in promptInput) string {
			return tagged("Additional user instructions:", "instructions", in.req.Instructions)
		},
	},
	{
		name:    "user_about",
		include: func(in promptInput) bool { return present(in.req.User.About) },
		render: func(in promptInput) string {
			return tagged("Context about the user:", "userAbout", in.req.User.About)
		},
	},
	{
		name:    "knowledge_base",
		include: func(in promptInput) bool { return present(in.req.KnowledgeBaseContent) },
		render: func(in promptInput) string {
			return tagged("Relevant knowledge base content:", "knowledge_base", in.req.KnowledgeBaseContent)
		},
	},
	{
		name:    "historical_context",
		include: func(in promptInput) bool { return present(in.req.EmailHistorySummary) },
		render: func(in promptInput) string {
			return tagged("Historical email context:", "historical_context", in.req.EmailHistorySummary)
		},
	},
	{
		name:    "thread",
		include: func(in promptInput) bool { return len(in.req.Messages) > 0 },
		render:  renderThread,
	},
	{
		name:    "closing",
		include: func(promptInput) bool { return true },
		render: func(in promptInput) string {
			return "Please write a reply to the email.\n" +
				llm.TodayForLLM(in.now) + "\n" +
				"IMPORTANT: The person you're writing an email for is: " + recipient(in.req.Messages) + "."
		},
	},
}

// buildPrompt joins the included sections with a blank line between them.
func buildPrompt(in promptInput) string {
	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		if !s.include(in) {
			continue
		}
		blocks = append(blocks, s.render(in))
	}
	return strings.Join(blocks, "\n\n")
}

func renderThread(in promptInput) string {
	emails := make([]string, 0, len(in.req.Messages))
	for _, msg := range in.req.Messages {
		emails = append(emails, renderMessage(msg, in.maxMessageChars))
	}
	return "Here is the context of the email thread (from oldest to newest):\n" + strings.Join(emails, "\n")
}

func renderMessage(msg model.ThreadMessage, maxChars int) string {
	date := "unknown"
	if msg.Date != nil {
		date = msg.Date.UTC().Format(time.RFC3339)
	}
	body := llm.StringifyEmail(llm.EmailForLLM{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
	}, maxChars)
	return "<email>\n" + body + "\n<date>" + date + "</date>\n</email>"
}

func tagged(heading, tag, content string) string {
	return heading + "\n\n<" + tag + ">\n" + strings.TrimSpace(content) + "\n</" + tag + ">"
}

func recipient(messages []model.ThreadMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].To
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
