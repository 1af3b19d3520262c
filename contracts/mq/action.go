package mq

import "time"

// ActionExecutePayload asks the mail provider side to perform one action.
// Published on "action.execute".
type ActionExecutePayload struct {
	ExecutionKey string            `json:"execution_key"`
	UserID       int               `json:"user_id"`
	EmailID      int               `json:"email_id"`
	ThreadID     string            `json:"thread_id"`
	RuleID       string            `json:"rule_id"`
	RuleName     string            `json:"rule_name"`
	ActionID     string            `json:"action_id"`
	ActionType   string            `json:"action_type"`
	Params       map[string]string `json:"params,omitempty"`
	// Position is the action's index within the rule.
	Position int    `json:"position"`
	TraceID  string `json:"trace_id,omitempty"`
}

// DraftCreatedPayload carries a knowledge-grounded reply draft.
// Published on "draft.created".
type DraftCreatedPayload struct {
	ExecutionKey string    `json:"execution_key"`
	UserID       int       `json:"user_id"`
	EmailID      int       `json:"email_id"`
	ThreadID     string    `json:"thread_id"`
	RuleID       string    `json:"rule_id"`
	ActionID     string    `json:"action_id"`
	To           string    `json:"to"`
	Reply        string    `json:"reply"`
	CreatedAt    time.Time `json:"created_at"`
	TraceID      string    `json:"trace_id,omitempty"`
}

// ApprovalQueuedPayload announces a new pending approval.
// Published on "approval.queued".
type ApprovalQueuedPayload struct {
	ApprovalID  string    `json:"approval_id"`
	UserID      int       `json:"user_id"`
	EmailID     int       `json:"email_id"`
	RuleID      string    `json:"rule_id"`
	RuleName    string    `json:"rule_name"`
	Reason      string    `json:"reason"`
	ActionCount int       `json:"action_count"`
	CreatedAt   time.Time `json:"created_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}
