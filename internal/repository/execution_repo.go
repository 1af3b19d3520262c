package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// ExecutionRepository remembers which executions already happened so each
// one runs at most once.
type ExecutionRepository struct{}

func NewExecutionRepository() *ExecutionRepository {
	return &ExecutionRepository{}
}

// RecordTx claims key inside tx. It reports false when key was already claimed.
func (r *ExecutionRepository) RecordTx(ctx context.Context, tx pgx.Tx, key, ruleID string, emailID int) (bool, error) {
	defer observe("insert", "rule_executions", time.Now())

	tag, err := tx.Exec(ctx, `
		INSERT INTO rule_executions (execution_key, rule_id, email_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (execution_key) DO NOTHING
	`, key, ruleID, emailID)
	if err != nil {
		return false, wrap("record execution", err)
	}
	return tag.RowsAffected() == 1, nil
}
