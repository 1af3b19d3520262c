package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	mqcontracts "mailpilot/contracts/mq"
	"mailpilot/internal/model"
	"mailpilot/pkg/logger"
	"mailpilot/pkg/mq"
	"mailpilot/pkg/trace"
)

const reasonDraftFailed = "knowledge draft failed, reply manually"

// ExecutionKey identifies the execution of rule on email.
func ExecutionKey(ruleID string, emailID int) string {
	return fmt.Sprintf("rule:%s:email:%d", ruleID, emailID)
}

// ApprovalExecutionKey identifies the execution of an approved approval.
func ApprovalExecutionKey(approvalID string) string {
	return "approval:" + approvalID
}

// ExecutionOutcome summarizes what Execute wrote.
type ExecutionOutcome struct {
	// Duplicate is true when the execution had already happened; nothing was written.
	Duplicate bool
	Executed  int
	Drafted   int
	// ApprovalID is set when failed drafts were queued for manual approval.
	ApprovalID string
}

// step is one action ready to be written to the outbox.
type step struct {
	action   model.Action
	position int
	// reply is set for knowledge-grounded drafts.
	reply string
}

// Executor turns a rule's actions into outbox events. Events reach the broker
// through the outbox dispatcher after the transaction commits.
type Executor struct {
	tx         TxRunner
	executions ExecutionStore
	events     EventWriter
	approvals  *ApprovalQueue
	drafter    *KnowledgeDrafter
	logger     *zap.Logger
	now        func() time.Time
}

func NewExecutor(
	tx TxRunner,
	executions ExecutionStore,
	events EventWriter,
	approvals *ApprovalQueue,
	drafter *KnowledgeDrafter,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		tx:         tx,
		executions: executions,
		events:     events,
		approvals:  approvals,
		drafter:    drafter,
		logger:     logger,
		now:        time.Now,
	}
}

// Execute runs actions for rule on email at most once. DRAFT_EMAIL actions
// are drafted from the knowledge base when one exists; a failed draft is
// queued for manual approval instead of producing an empty draft.
func (e *Executor) Execute(ctx context.Context, rule model.Rule, actions []model.Action, email model.Email) (ExecutionOutcome, error) {
	log := logger.WithTrace(ctx, e.logger).With(
		zap.String("rule_id", rule.ID),
		zap.Int("email_id", email.ID),
	)

	steps, fallback := e.plan(ctx, actions, email, log)
	key := ExecutionKey(rule.ID, email.ID)

	var out ExecutionOutcome
	err := e.tx.InTx(ctx, func(tx pgx.Tx) error {
		out = ExecutionOutcome{}

		claimed, err := e.executions.RecordTx(ctx, tx, key, rule.ID, email.ID)
		if err != nil {
			return err
		}
		if !claimed {
			out.Duplicate = true
			return nil
		}

		if err := e.writeSteps(ctx, tx, key, rule, email, steps); err != nil {
			return err
		}
		for _, s := range steps {
			if s.reply != "" {
				out.Drafted++
			} else {
				out.Executed++
			}
		}

		if len(fallback) > 0 {
			approval, err := e.approvals.enqueueTx(ctx, tx, rule, fallback, email, reasonDraftFailed)
			if err != nil {
				return err
			}
			out.ApprovalID = approval.ID
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to execute rule actions", zap.Error(err))
		return ExecutionOutcome{}, err
	}

	if out.Duplicate {
		log.Info("Rule already executed for email, skipping")
		return out, nil
	}

	log.Info("Rule actions executed",
		zap.Int("executed", out.Executed),
		zap.Int("drafted", out.Drafted),
		zap.String("approval_id", out.ApprovalID),
	)
	return out, nil
}

// plan drafts knowledge-grounded replies before the transaction opens so no
// generation call holds a database connection.
func (e *Executor) plan(ctx context.Context, actions []model.Action, email model.Email, log *zap.Logger) ([]step, []model.Action) {
	steps := make([]step, 0, len(actions))
	var fallback []model.Action

	for i, a := range actions {
		if a.Type != model.ActionDraftEmail || e.drafter == nil {
			steps = append(steps, step{action: a, position: i})
			continue
		}

		draft := e.drafter.Draft(ctx, email, a)
		switch {
		case !draft.Grounded:
			steps = append(steps, step{action: a, position: i})
		case draft.Err != nil:
			log.Warn("Knowledge draft failed, queueing for manual reply",
				zap.String("action_id", a.ID),
				zap.Error(draft.Err),
			)
			fallback = append(fallback, a)
		default:
			steps = append(steps, step{action: a, position: i, reply: draft.Reply})
		}
	}
	return steps, fallback
}

func (e *Executor) writeSteps(ctx context.Context, tx pgx.Tx, key string, rule model.Rule, email model.Email, steps []step) error {
	traceID := trace.FromContext(ctx)
	aggregateID := strconv.Itoa(email.ID)

	for _, s := range steps {
		if s.reply != "" {
			payload := mqcontracts.DraftCreatedPayload{
				ExecutionKey: key,
				UserID:       email.UserID,
				EmailID:      email.ID,
				ThreadID:     email.ThreadID,
				RuleID:       rule.ID,
				ActionID:     s.action.ID,
				To:           email.From,
				Reply:        s.reply,
				CreatedAt:    e.now(),
				TraceID:      traceID,
			}
			if err := e.events.Enqueue(ctx, tx, "email", aggregateID, mq.RoutingDraftCreated, payload); err != nil {
				return err
			}
			continue
		}

		payload := mqcontracts.ActionExecutePayload{
			ExecutionKey: key,
			UserID:       email.UserID,
			EmailID:      email.ID,
			ThreadID:     email.ThreadID,
			RuleID:       rule.ID,
			RuleName:     rule.Name,
			ActionID:     s.action.ID,
			ActionType:   string(s.action.Type),
			Params:       s.action.Params,
			Position:     s.position,
			TraceID:      traceID,
		}
		if err := e.events.Enqueue(ctx, tx, "email", aggregateID, mq.RoutingActionExecute, payload); err != nil {
			return err
		}
	}
	return nil
}
