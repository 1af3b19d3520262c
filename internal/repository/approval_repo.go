package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailpilot/internal/apperr"
	"mailpilot/internal/model"
)

type ApprovalRepository struct {
	db *pgxpool.Pool
}

func NewApprovalRepository(db *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// CreateTx stores a PENDING approval inside tx and fills its id and timestamps.
func (r *ApprovalRepository) CreateTx(ctx context.Context, tx pgx.Tx, a *model.Approval) error {
	defer observe("insert", "approvals", time.Now())

	if a.ID == "" {
		a.ID = newID()
	}
	a.Status = model.ApprovalPending

	err := tx.QueryRow(ctx, `
		INSERT INTO approvals (id, user_id, rule_id, rule_name, email, actions, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, a.ID, a.UserID, a.RuleID, a.RuleName, a.Email, a.Actions, a.Reason, string(a.Status)).Scan(&a.CreatedAt)
	return wrap("create approval", err)
}

const selectApprovals = `
	SELECT id, user_id, rule_id, rule_name, email, actions, reason, status, created_at, decided_at
	FROM approvals
`

func scanApproval(row pgx.Row) (*model.Approval, error) {
	var a model.Approval
	var status string
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.RuleID,
		&a.RuleName,
		&a.Email,
		&a.Actions,
		&a.Reason,
		&status,
		&a.CreatedAt,
		&a.DecidedAt,
	); err != nil {
		return nil, err
	}
	a.Status = model.ApprovalStatus(status)
	return &a, nil
}

// Get returns one of the user's approvals.
func (r *ApprovalRepository) Get(ctx context.Context, userID int, id string) (*model.Approval, error) {
	defer observe("select", "approvals", time.Now())

	a, err := scanApproval(r.db.QueryRow(ctx, selectApprovals+`WHERE user_id = $1 AND id = $2`, userID, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperr.NewNotFound("approval", id)
		}
		return nil, wrap("get approval", err)
	}
	return a, nil
}

// List returns the user's approvals with the given status, oldest first.
// An empty status lists all of them.
func (r *ApprovalRepository) List(ctx context.Context, userID int, status model.ApprovalStatus) ([]model.Approval, error) {
	defer observe("select", "approvals", time.Now())

	rows, err := r.db.Query(ctx, selectApprovals+`
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY id
	`, userID, string(status))
	if err != nil {
		return nil, wrap("list approvals", err)
	}
	defer rows.Close()

	approvals := []model.Approval{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, wrap("scan approval", err)
		}
		approvals = append(approvals, *a)
	}
	return approvals, wrap("list approvals", rows.Err())
}

// DecideTx moves a PENDING approval to status. It reports false when the
// approval was no longer pending.
func (r *ApprovalRepository) DecideTx(ctx context.Context, tx pgx.Tx, id string, status model.ApprovalStatus) (bool, error) {
	defer observe("update", "approvals", time.Now())

	tag, err := tx.Exec(ctx, `
		UPDATE approvals
		SET status = $2, decided_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`, id, string(status))
	if err != nil {
		return false, wrap("decide approval", err)
	}
	return tag.RowsAffected() == 1, nil
}
