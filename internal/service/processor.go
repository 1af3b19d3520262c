package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailpilot/internal/apperr"
	"mailpilot/internal/gate"
	"mailpilot/internal/model"
	"mailpilot/pkg/logger"
	"mailpilot/pkg/metrics"
)

const dedupHandler = "rule"

type ActionRunner interface {
	Execute(ctx context.Context, rule model.Rule, actions []model.Action, email model.Email) (ExecutionOutcome, error)
}

// ApprovalEnqueuer returns a nil approval when the rule was already handled for the email.
type ApprovalEnqueuer interface {
	Enqueue(ctx context.Context, rule model.Rule, actions []model.Action, email model.Email, reason string) (*model.Approval, error)
}

// ProcessOutcome describes what happened to one email.
type ProcessOutcome struct {
	Rule      *model.Rule
	Reason    string
	Decision  gate.Decision
	Duplicate bool
	Execution ExecutionOutcome
	// ApprovalID is set when the rule's actions were queued.
	ApprovalID string
	Warnings   []*apperr.Error
}

// Processor runs an incoming email through match, gate and execution.
type Processor struct {
	rules     RuleStore
	matcher   RuleMatcher
	executor  ActionRunner
	approvals ApprovalEnqueuer
	deduper   Deduper
	logger    *zap.Logger
}

func NewProcessor(
	rules RuleStore,
	matcher RuleMatcher,
	executor ActionRunner,
	approvals ApprovalEnqueuer,
	deduper Deduper,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		rules:     rules,
		matcher:   matcher,
		executor:  executor,
		approvals: approvals,
		deduper:   deduper,
		logger:    logger,
	}
}

// Process returns an error only for failures worth retrying: loading rules,
// a cancelled context, or writing the execution or approval.
func (p *Processor) Process(ctx context.Context, email model.Email) (ProcessOutcome, error) {
	log := logger.WithTrace(ctx, p.logger).With(
		zap.Int("email_id", email.ID),
		zap.Int("user_id", email.UserID),
	)

	rules, err := p.rules.ListEnabledRules(ctx, email.UserID)
	if err != nil {
		metrics.IncrementEmailProcessed("error")
		return ProcessOutcome{}, err
	}

	res, err := p.matcher.Match(ctx, email, rules)
	if err != nil {
		metrics.IncrementEmailProcessed("error")
		return ProcessOutcome{Warnings: res.Warnings}, err
	}

	out := ProcessOutcome{Rule: res.Rule, Reason: res.Reason, Warnings: res.Warnings}
	if res.Rule == nil {
		metrics.IncrementEmailProcessed("no_match")
		log.Info("No rule matched", zap.Int("rules", len(rules)), zap.Int("warnings", len(res.Warnings)))
		return out, nil
	}
	rule := *res.Rule

	out.Decision = gate.Decide(rule)
	metrics.IncrementGateDecision(string(out.Decision))

	subject := fmt.Sprintf("%s:%d", rule.ID, email.ID)
	if p.deduper != nil && !p.deduper.AcquireOnce(ctx, dedupHandler, subject) {
		out.Duplicate = true
		metrics.IncrementEmailProcessed("duplicate")
		return out, nil
	}

	switch out.Decision {
	case gate.ExecuteNow:
		out.Execution, err = p.executor.Execute(ctx, rule, rule.Actions, email)
		out.Duplicate = out.Execution.Duplicate
	default:
		var approval *model.Approval
		approval, err = p.approvals.Enqueue(ctx, rule, rule.Actions, email, "rule requires approval")
		if approval != nil {
			out.ApprovalID = approval.ID
		} else if err == nil {
			out.Duplicate = true
		}
	}
	if err != nil {
		if p.deduper != nil {
			p.deduper.Release(ctx, dedupHandler, subject)
		}
		metrics.IncrementEmailProcessed("error")
		return out, err
	}

	metrics.IncrementEmailProcessed("success")
	log.Info("Email processed",
		zap.String("rule_id", rule.ID),
		zap.String("decision", string(out.Decision)),
		zap.String("approval_id", out.ApprovalID),
	)
	return out, nil
}
