package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"mailpilot/internal/apperr"
	"mailpilot/internal/model"
)

type RuleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRuleRepository(db *pgxpool.Pool, logger *zap.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const selectRules = `
	SELECT r.id, r.user_id, r.name, r.type, r.enabled, r.automate, r.run_on_threads,
	       COALESCE(r.instructions, ''), COALESCE(r.from_pattern, ''),
	       COALESCE(r.subject_pattern, ''), COALESCE(r.body_pattern, ''),
	       COALESCE(r.group_id, ''), COALESCE(g.name, ''), r.created_at
	FROM rules r
	LEFT JOIN groups g ON g.id = r.group_id AND g.user_id = r.user_id
`

// ListEnabledRules returns the user's enabled rules in evaluation order.
func (r *RuleRepository) ListEnabledRules(ctx context.Context, userID int) ([]model.Rule, error) {
	return r.list(ctx, selectRules+`
		WHERE r.user_id = $1 AND r.enabled
		ORDER BY r.position, r.created_at, r.id
	`, userID)
}

// ListRules returns all of the user's rules in evaluation order.
func (r *RuleRepository) ListRules(ctx context.Context, userID int) ([]model.Rule, error) {
	return r.list(ctx, selectRules+`
		WHERE r.user_id = $1
		ORDER BY r.position, r.created_at, r.id
	`, userID)
}

// GetRule returns one rule with its actions.
func (r *RuleRepository) GetRule(ctx context.Context, userID int, ruleID string) (*model.Rule, error) {
	rules, err := r.list(ctx, selectRules+`WHERE r.user_id = $1 AND r.id = $2`, userID, ruleID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, apperr.NewNotFound("rule", ruleID)
	}
	return &rules[0], nil
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...any) ([]model.Rule, error) {
	defer observe("select", "rules", time.Now())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list rules", err)
	}
	defer rows.Close()

	rules := []model.Rule{}
	for rows.Next() {
		var rule model.Rule
		var ruleType string
		if err := rows.Scan(
			&rule.ID,
			&rule.UserID,
			&rule.Name,
			&ruleType,
			&rule.Enabled,
			&rule.Automate,
			&rule.RunOnThreads,
			&rule.Instructions,
			&rule.From,
			&rule.Subject,
			&rule.Body,
			&rule.GroupID,
			&rule.GroupName,
			&rule.CreatedAt,
		); err != nil {
			return nil, wrap("scan rule", err)
		}
		rule.Type = model.RuleType(ruleType)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list rules", err)
	}

	if err := r.attachActions(ctx, rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepository) attachActions(ctx context.Context, rules []model.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	defer observe("select", "actions", time.Now())

	ids := make([]string, len(rules))
	index := make(map[string]int, len(rules))
	for i, rule := range rules {
		ids[i] = rule.ID
		index[rule.ID] = i
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, rule_id, type, COALESCE(params, '{}'::jsonb)
		FROM actions
		WHERE rule_id = ANY($1)
		ORDER BY rule_id, position
	`, ids)
	if err != nil {
		return wrap("list actions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Action
		var ruleID, actionType string
		if err := rows.Scan(&a.ID, &ruleID, &actionType, &a.Params); err != nil {
			return wrap("scan action", err)
		}
		a.Type = model.ActionType(actionType)
		i := index[ruleID]
		rules[i].Actions = append(rules[i].Actions, a)
	}
	return wrap("list actions", rows.Err())
}

// SetAutomate toggles whether the rule's actions run without approval.
func (r *RuleRepository) SetAutomate(ctx context.Context, userID int, ruleID string, value bool) error {
	return r.update(ctx, "set automate", `UPDATE rules SET automate = $3 WHERE user_id = $1 AND id = $2`, userID, ruleID, value)
}

// SetRunOnThreads toggles whether the rule applies to thread follow-ups.
func (r *RuleRepository) SetRunOnThreads(ctx context.Context, userID int, ruleID string, value bool) error {
	return r.update(ctx, "set run_on_threads", `UPDATE rules SET run_on_threads = $3 WHERE user_id = $1 AND id = $2`, userID, ruleID, value)
}

// Delete removes the rule. Its actions go with it through the foreign key.
func (r *RuleRepository) Delete(ctx context.Context, userID int, ruleID string) error {
	return r.update(ctx, "delete rule", `DELETE FROM rules WHERE user_id = $1 AND id = $2`, userID, ruleID)
}

func (r *RuleRepository) update(ctx context.Context, op, query string, userID int, ruleID string, args ...any) error {
	defer observe("update", "rules", time.Now())

	tag, err := r.db.Exec(ctx, query, append([]any{userID, ruleID}, args...)...)
	if err != nil {
		r.logger.Error("Rule update failed",
			zap.String("op", op),
			zap.String("rule_id", ruleID),
			zap.Error(err),
		)
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("rule", ruleID)
	}

	r.logger.Info("Rule updated",
		zap.String("op", op),
		zap.Int("user_id", userID),
		zap.String("rule_id", ruleID),
	)
	return nil
}

// Create stores a rule and its actions. Empty ids are generated.
func (r *RuleRepository) Create(ctx context.Context, rule *model.Rule, position int) error {
	defer observe("insert", "rules", time.Now())

	if rule.ID == "" {
		rule.ID = newID()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return wrap("begin create rule", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO rules (id, user_id, name, type, enabled, automate, run_on_threads,
		                   instructions, from_pattern, subject_pattern, body_pattern, group_id, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''),
		        NULLIF($11, ''), NULLIF($12, ''), $13)
		RETURNING created_at
	`,
		rule.ID, rule.UserID, rule.Name, string(rule.Type), rule.Enabled, rule.Automate, rule.RunOnThreads,
		rule.Instructions, rule.From, rule.Subject, rule.Body, rule.GroupID, position,
	).Scan(&rule.CreatedAt)
	if err != nil {
		return wrap("insert rule", err)
	}

	for i := range rule.Actions {
		a := &rule.Actions[i]
		if a.ID == "" {
			a.ID = newID()
		}
		if err := insertAction(ctx, tx, rule.ID, i, a); err != nil {
			return err
		}
	}

	return wrap("commit create rule", tx.Commit(ctx))
}

func insertAction(ctx context.Context, tx pgx.Tx, ruleID string, position int, a *model.Action) error {
	params := a.Params
	if params == nil {
		params = map[string]string{}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO actions (id, rule_id, position, type, params)
		VALUES ($1, $2, $3, $4, $5)
	`, a.ID, ruleID, position, string(a.Type), params)
	return wrap("insert action", err)
}
