package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"mailpilot/internal/draft"
	"mailpilot/internal/matcher"
	"mailpilot/internal/model"
)

// TxRunner runs fn in a transaction that commits iff fn returns nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// EventWriter stores an event in the transactional outbox.
type EventWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, routingKey string, payload any) error
}

// ExecutionStore claims execution keys so every execution happens at most once.
type ExecutionStore interface {
	RecordTx(ctx context.Context, tx pgx.Tx, key, ruleID string, emailID int) (bool, error)
}

type ApprovalStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, a *model.Approval) error
	Get(ctx context.Context, userID int, id string) (*model.Approval, error)
	List(ctx context.Context, userID int, status model.ApprovalStatus) ([]model.Approval, error)
	DecideTx(ctx context.Context, tx pgx.Tx, id string, status model.ApprovalStatus) (bool, error)
}

type RuleStore interface {
	ListEnabledRules(ctx context.Context, userID int) ([]model.Rule, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, subject string) bool
	Release(ctx context.Context, handler, subject string)
}

type RuleMatcher interface {
	Match(ctx context.Context, email model.Email, rules []model.Rule) (matcher.Result, error)
}

type KnowledgeSource interface {
	ListByUser(ctx context.Context, userID int) ([]model.KnowledgeEntry, error)
}

type ThreadSource interface {
	ListThread(ctx context.Context, userID int, threadID string) ([]model.ThreadMessage, error)
}

type ProfileSource interface {
	GetProfile(ctx context.Context, userID int) (model.UserProfile, error)
}

// HistorySource returns the summary of earlier exchanges with email's sender.
type HistorySource interface {
	Summary(ctx context.Context, email model.Email) (string, error)
}

type DraftComposer interface {
	Compose(ctx context.Context, req draft.Request) draft.Result
}
