// Package draft writes reply drafts grounded in the user's knowledge base.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"mailpilot/internal/apperr"
	"mailpilot/internal/llm"
	"mailpilot/internal/model"
	"mailpilot/pkg/logger"
	"mailpilot/pkg/metrics"
)

var errNoMessages = errors.New("thread has no messages to reply to")

// Request is the bounded context for one draft. Messages run oldest to newest.
type Request struct {
	Messages             []model.ThreadMessage
	User                 model.UserProfile
	Instructions         string
	KnowledgeBaseContent string
	EmailHistorySummary  string
}

// Result carries either Reply or Err. Callers must check Err first.
type Result struct {
	Reply string
	Err   *apperr.Error
}

// OK reports whether the result holds a reply.
func (r Result) OK() bool { return r.Err == nil }

type draftReply struct {
	Reply string `json:"reply" jsonschema:"description=The complete email reply draft incorporating knowledge base information"`
}

func (d *draftReply) Validate() error {
	if strings.TrimSpace(d.Reply) == "" {
		return errors.New("reply is empty")
	}
	return nil
}

// Composer is stateless across calls and safe for concurrent use.
type Composer struct {
	generator       llm.Generator
	logger          *zap.Logger
	schema          *jsonschema.Schema
	now             func() time.Time
	maxMessageChars int
}

type Option func(*Composer)

// WithClock overrides the source of the current date marker.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithMaxMessageChars bounds the body of each thread message in the prompt.
func WithMaxMessageChars(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxMessageChars = n
		}
	}
}

func NewComposer(generator llm.Generator, logger *zap.Logger, opts ...Option) *Composer {
	c := &Composer{
		generator:       generator,
		logger:          logger,
		schema:          llm.SchemaFor(&draftReply{}),
		now:             time.Now,
		maxMessageChars: llm.DefaultMaxEmailChars,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prompt returns the system and user prompts Compose would send for req.
func (c *Composer) Prompt(req Request) (system, prompt string) {
	return systemPrompt, buildPrompt(promptInput{
		req:             req,
		now:             c.now(),
		maxMessageChars: c.maxMessageChars,
	})
}

// Compose makes exactly one generation call. It never retries and never
// returns a partial reply. An empty or whitespace-only reply is reported as a
// DRAFT_GENERATION error rather than returned as a blank draft.
func (c *Composer) Compose(ctx context.Context, req Request) Result {
	log := logger.WithTrace(ctx, c.logger).With(
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("has_knowledge", present(req.KnowledgeBaseContent)),
		zap.Bool("has_history", present(req.EmailHistorySummary)),
	)
	log.Info("Drafting email with knowledge base")

	reply, err := c.compose(ctx, req, log)
	if err != nil {
		metrics.IncrementDraftResult("error")
		log.Error("Failed to draft email with knowledge", zap.Error(err))
		return Result{Err: apperr.NewDraftGeneration(err)}
	}

	metrics.IncrementDraftResult("ok")
	return Result{Reply: reply}
}

func (c *Composer) compose(ctx context.Context, req Request, log *zap.Logger) (string, error) {
	if len(req.Messages) == 0 {
		return "", errNoMessages
	}
	if c.generator == nil {
		return "", fmt.Errorf("no generator configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	system, prompt := c.Prompt(req)
	log.Debug("Draft input", zap.String("system", system), zap.String("prompt", prompt))

	var out draftReply
	err := c.generator.Generate(ctx, llm.Request{
		System:     system,
		Prompt:     prompt,
		Schema:     c.schema,
		UsageLabel: "Email draft with knowledge",
		UserEmail:  req.User.Email,
	}, &out)
	if err != nil {
		return "", err
	}
	// Generators are not required to run DecodeObject themselves.
	if err := out.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrSchemaValidation, err)
	}

	log.Debug("Draft output", zap.Int("reply_length", len(out.Reply)))
	return out.Reply, nil
}
