// Package matcher selects the rule that applies to an incoming email.
//
// Rules are evaluated in the order the caller supplies and the first rule
// whose condition holds wins. Failures while evaluating a single rule never
// abort the evaluation: they are reported as warnings and the rule counts as
// not matching.
package matcher

import (
	"context"

	"go.uber.org/zap"

	"mailpilot/internal/apperr"
	"mailpilot/internal/llm"
	"mailpilot/internal/model"
	"mailpilot/pkg/logger"
	"mailpilot/pkg/metrics"
)

// GroupResolver looks up the group referenced by a GROUP rule.
// It returns (nil, nil) when the group does not exist. Match only uses groups
// owned by the rule's user.
type GroupResolver interface {
	ResolveGroup(ctx context.Context, groupID string) (*model.Group, error)
}

// Result is the outcome of Match. Rule is nil when nothing matched.
type Result struct {
	Rule *model.Rule
	// Reason explains the match for audit logs.
	Reason string
	// Warnings holds DATA_INTEGRITY and MATCH_EVALUATION errors for rules that
	// were skipped.
	Warnings []*apperr.Error
}

// Matcher holds no mutable state and is safe for concurrent use.
type Matcher struct {
	groups GroupResolver
	judge  *AIJudge
	logger *zap.Logger
}

func New(groups GroupResolver, generator llm.Generator, logger *zap.Logger) *Matcher {
	return &Matcher{
		groups: groups,
		judge:  NewAIJudge(generator),
		logger: logger,
	}
}

type outcome struct {
	matched bool
	reason  string
	warning *apperr.Error
}

// Match returns the first eligible rule in rules whose condition holds for email.
// The only error it returns is ctx.Err() when the context ends mid-evaluation,
// since a partial evaluation could otherwise pick a lower-precedence rule.
func (m *Matcher) Match(ctx context.Context, email model.Email, rules []model.Rule) (Result, error) {
	log := logger.WithTrace(ctx, m.logger).With(zap.Int("email_id", email.ID))
	var res Result

	for i := range rules {
		if err := ctx.Err(); err != nil {
			return Result{Warnings: res.Warnings}, err
		}

		rule := &rules[i]
		if !Eligible(rule, email) {
			continue
		}

		out := m.evaluate(ctx, email, rule)
		if !out.matched {
			if err := ctx.Err(); err != nil {
				return Result{Warnings: res.Warnings}, err
			}
		}
		if out.warning != nil {
			res.Warnings = append(res.Warnings, out.warning)
			if out.warning.Code == apperr.CodeDataIntegrity {
				metrics.IncrementRuleMatch(string(rule.Type), "integrity")
				log.Warn("Skipping rule with integrity problem",
					zap.String("rule_id", rule.ID),
					zap.String("rule_type", string(rule.Type)),
					zap.String("problem", out.warning.Message),
				)
			} else {
				metrics.IncrementRuleMatch(string(rule.Type), "error")
				log.Warn("Rule evaluation failed, treating as no match",
					zap.String("rule_id", rule.ID),
					zap.String("rule_type", string(rule.Type)),
					zap.Error(out.warning.Err),
				)
			}
			continue
		}

		if !out.matched {
			metrics.IncrementRuleMatch(string(rule.Type), "no_match")
			continue
		}

		metrics.IncrementRuleMatch(string(rule.Type), "matched")
		log.Info("Rule matched",
			zap.String("rule_id", rule.ID),
			zap.String("rule_name", rule.Name),
			zap.String("reason", out.reason),
		)
		res.Rule = rule
		res.Reason = out.reason
		return res, nil
	}

	return res, nil
}

// Eligible reports whether rule may be evaluated against email at all:
// disabled rules never are, and rules not running on threads skip follow-ups.
func Eligible(rule *model.Rule, email model.Email) bool {
	if !rule.Enabled {
		return false
	}
	if email.IsThreadFollowUp && !rule.RunOnThreads {
		return false
	}
	return true
}

func (m *Matcher) evaluate(ctx context.Context, email model.Email, rule *model.Rule) outcome {
	if problem := rule.Validate(); problem != "" {
		return outcome{warning: apperr.NewDataIntegrity(rule.ID, problem)}
	}

	switch rule.Type {
	case model.RuleTypeStatic:
		return matchStatic(rule, email)
	case model.RuleTypeGroup:
		return m.matchGroup(ctx, rule, email)
	case model.RuleTypeAI:
		return m.matchAI(ctx, rule, email)
	default:
		// Validate rejects unknown types; kept for exhaustiveness.
		return outcome{warning: apperr.NewDataIntegrity(rule.ID, "unknown rule type "+string(rule.Type))}
	}
}
