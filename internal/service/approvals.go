package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	mqcontracts "mailpilot/contracts/mq"
	"mailpilot/internal/apperr"
	"mailpilot/internal/model"
	"mailpilot/pkg/logger"
	"mailpilot/pkg/mq"
	"mailpilot/pkg/trace"
)

// ApprovalQueue parks a matched rule's actions until the user decides.
type ApprovalQueue struct {
	tx         TxRunner
	approvals  ApprovalStore
	executions ExecutionStore
	events     EventWriter
	logger     *zap.Logger
}

func NewApprovalQueue(tx TxRunner, approvals ApprovalStore, executions ExecutionStore, events EventWriter, logger *zap.Logger) *ApprovalQueue {
	return &ApprovalQueue{
		tx:         tx,
		approvals:  approvals,
		executions: executions,
		events:     events,
		logger:     logger,
	}
}

// Enqueue stores a PENDING approval and announces it on "approval.queued".
// It claims the same execution key as Executor.Execute, so a rule is either
// executed or queued for an email, once. It returns (nil, nil) when the key
// was already claimed.
func (q *ApprovalQueue) Enqueue(ctx context.Context, rule model.Rule, actions []model.Action, email model.Email, reason string) (*model.Approval, error) {
	var approval *model.Approval
	err := q.tx.InTx(ctx, func(tx pgx.Tx) error {
		approval = nil
		claimed, err := q.executions.RecordTx(ctx, tx, ExecutionKey(rule.ID, email.ID), rule.ID, email.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		approval, err = q.enqueueTx(ctx, tx, rule, actions, email, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	if approval == nil {
		logger.WithTrace(ctx, q.logger).Info("Rule already handled for email, not queueing",
			zap.String("rule_id", rule.ID),
			zap.Int("email_id", email.ID),
		)
		return nil, nil
	}

	logger.WithTrace(ctx, q.logger).Info("Actions queued for approval",
		zap.String("approval_id", approval.ID),
		zap.String("rule_id", rule.ID),
		zap.Int("email_id", email.ID),
		zap.Int("action_count", len(actions)),
	)
	return approval, nil
}

// enqueueTx writes the approval without claiming an execution key; callers
// inside Execute already hold it.
func (q *ApprovalQueue) enqueueTx(ctx context.Context, tx pgx.Tx, rule model.Rule, actions []model.Action, email model.Email, reason string) (*model.Approval, error) {
	approval := &model.Approval{
		UserID:   email.UserID,
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Email:    email,
		Actions:  actions,
		Reason:   reason,
	}
	if err := q.approvals.CreateTx(ctx, tx, approval); err != nil {
		return nil, err
	}

	payload := mqcontracts.ApprovalQueuedPayload{
		ApprovalID:  approval.ID,
		UserID:      approval.UserID,
		EmailID:     email.ID,
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Reason:      reason,
		ActionCount: len(actions),
		CreatedAt:   approval.CreatedAt,
		TraceID:     trace.FromContext(ctx),
	}
	if err := q.events.Enqueue(ctx, tx, "approval", approval.ID, mq.RoutingApprovalQueued, payload); err != nil {
		return nil, err
	}
	return approval, nil
}

// ApprovalService lists approvals and applies the user's decisions.
type ApprovalService struct {
	tx         TxRunner
	approvals  ApprovalStore
	executions ExecutionStore
	executor   *Executor
	logger     *zap.Logger
	now        func() time.Time
}

func NewApprovalService(tx TxRunner, approvals ApprovalStore, executions ExecutionStore, executor *Executor, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{
		tx:         tx,
		approvals:  approvals,
		executions: executions,
		executor:   executor,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns the user's approvals in status, or all when status is empty.
func (s *ApprovalService) List(ctx context.Context, userID int, status model.ApprovalStatus) ([]model.Approval, error) {
	switch status {
	case "", model.ApprovalPending, model.ApprovalApproved, model.ApprovalRejected:
	default:
		return nil, apperr.NewInvalidRequest("unknown approval status " + string(status))
	}
	return s.approvals.List(ctx, userID, status)
}

// Approve executes the approval's stored actions exactly once.
func (s *ApprovalService) Approve(ctx context.Context, userID int, id string) (*model.Approval, error) {
	return s.decide(ctx, userID, id, model.ApprovalApproved)
}

// Reject discards the approval without executing anything.
func (s *ApprovalService) Reject(ctx context.Context, userID int, id string) (*model.Approval, error) {
	return s.decide(ctx, userID, id, model.ApprovalRejected)
}

func (s *ApprovalService) decide(ctx context.Context, userID int, id string, status model.ApprovalStatus) (*model.Approval, error) {
	approval, err := s.approvals.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if approval.Status != model.ApprovalPending {
		return nil, apperr.NewConflict("approval " + id + " is already " + string(approval.Status))
	}

	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		ok, err := s.approvals.DecideTx(ctx, tx, id, status)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NewConflict("approval " + id + " was decided concurrently")
		}
		if status != model.ApprovalApproved {
			return nil
		}

		key := ApprovalExecutionKey(id)
		claimed, err := s.executions.RecordTx(ctx, tx, key, approval.RuleID, approval.Email.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return apperr.NewConflict("approval " + id + " was already executed")
		}

		steps := make([]step, len(approval.Actions))
		for i, a := range approval.Actions {
			steps[i] = step{action: a, position: i}
		}
		rule := model.Rule{ID: approval.RuleID, Name: approval.RuleName}
		return s.executor.writeSteps(ctx, tx, key, rule, approval.Email, steps)
	})
	if err != nil {
		return nil, err
	}

	decidedAt := s.now()
	approval.Status = status
	approval.DecidedAt = &decidedAt

	logger.WithTrace(ctx, s.logger).Info("Approval decided",
		zap.String("approval_id", id),
		zap.Int("user_id", userID),
		zap.String("status", string(status)),
	)
	return approval, nil
}
