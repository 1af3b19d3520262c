package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"mailpilot/internal/llm"
	"mailpilot/internal/model"
	"mailpilot/pkg/logger"
)

const historySystemPrompt = `You summarize a user's past email exchanges with one sender.
Write a short paragraph that helps someone reply to the sender's next email:
recurring topics, open requests, commitments made by either side and the tone of the relationship.
Only use facts stated in the emails. Do not invent information.`

type historySummary struct {
	Summary string `json:"summary" jsonschema:"description=A short summary of the past exchanges with the sender"`
}

func (h *historySummary) Validate() error {
	if strings.TrimSpace(h.Summary) == "" {
		return errors.New("summary is empty")
	}
	return nil
}

// HistorySummarizer condenses earlier emails with a sender into the
// historical context section of a draft prompt.
type HistorySummarizer struct {
	generator       llm.Generator
	logger          *zap.Logger
	schema          *jsonschema.Schema
	maxMessageChars int
}

// NewHistorySummarizer bounds each message body to maxMessageChars, or to
// llm.DefaultMaxEmailChars when maxMessageChars is not positive.
func NewHistorySummarizer(generator llm.Generator, logger *zap.Logger, maxMessageChars int) *HistorySummarizer {
	if maxMessageChars <= 0 {
		maxMessageChars = llm.DefaultMaxEmailChars
	}
	return &HistorySummarizer{
		generator:       generator,
		logger:          logger,
		schema:          llm.SchemaFor(&historySummary{}),
		maxMessageChars: maxMessageChars,
	}
}

// Summarize returns "" without calling the generator when messages is empty.
func (s *HistorySummarizer) Summarize(ctx context.Context, sender string, messages []model.ThreadMessage) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	if s.generator == nil {
		return "", fmt.Errorf("no generator configured")
	}

	var out historySummary
	err := s.generator.Generate(ctx, llm.Request{
		System:     historySystemPrompt,
		Prompt:     historyPrompt(sender, messages, s.maxMessageChars),
		Schema:     s.schema,
		UsageLabel: "Email history summary",
	}, &out)
	if err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to summarize email history",
			zap.Int("message_count", len(messages)),
			zap.Error(err),
		)
		return "", err
	}
	if err := out.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrSchemaValidation, err)
	}
	return strings.TrimSpace(out.Summary), nil
}

func historyPrompt(sender string, messages []model.ThreadMessage, maxChars int) string {
	emails := make([]string, 0, len(messages))
	for _, msg := range messages {
		emails = append(emails, renderMessage(msg, maxChars))
	}
	return "Summarize the past emails exchanged with " + sender + " (from oldest to newest):\n" +
		strings.Join(emails, "\n")
}
