package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"mailpilot/internal/apperr"
	"mailpilot/internal/llm"
	"mailpilot/internal/model"
)

const judgeSystemPrompt = `You are an AI assistant that decides whether an email matches a rule written by the user.
The rule is a plain-language condition. Read the email and decide if the condition holds.
Only answer matched=true when the email clearly satisfies the condition.
Give a one sentence reason for your decision.`

// Judgment is the structured output of an AI rule evaluation.
type Judgment struct {
	Matched bool   `json:"matched" jsonschema:"description=Whether the email satisfies the rule condition"`
	Reason  string `json:"reason" jsonschema:"description=One sentence explaining the decision"`
}

// AIJudge asks the generation capability whether an email satisfies an AI rule.
type AIJudge struct {
	generator llm.Generator
	schema    *jsonschema.Schema
}

func NewAIJudge(generator llm.Generator) *AIJudge {
	return &AIJudge{
		generator: generator,
		schema:    llm.SchemaFor(&Judgment{}),
	}
}

// Judge returns the model's verdict on whether email satisfies instructions.
func (j *AIJudge) Judge(ctx context.Context, instructions string, email model.Email) (Judgment, error) {
	if j.generator == nil {
		return Judgment{}, fmt.Errorf("no generator configured")
	}

	var out Judgment
	err := j.generator.Generate(ctx, llm.Request{
		System:     judgeSystemPrompt,
		Prompt:     judgePrompt(instructions, email),
		Schema:     j.schema,
		UsageLabel: "Rule match",
	}, &out)
	if err != nil {
		return Judgment{}, err
	}
	return out, nil
}

func judgePrompt(instructions string, email model.Email) string {
	var b strings.Builder
	b.WriteString("<rule>\n")
	b.WriteString(strings.TrimSpace(instructions))
	b.WriteString("\n</rule>\n\n<email>\n")
	b.WriteString(llm.StringifyEmail(llm.EmailForLLM{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Body:    email.Body,
	}, llm.DefaultMaxEmailChars))
	b.WriteString("\n</email>")
	return b.String()
}

func (m *Matcher) matchAI(ctx context.Context, rule *model.Rule, email model.Email) outcome {
	verdict, err := m.judge.Judge(ctx, rule.Instructions, email)
	if err != nil {
		return outcome{warning: apperr.NewMatchEvaluation(rule.ID, err)}
	}
	return outcome{matched: verdict.Matched, reason: "ai: " + verdict.Reason}
}
