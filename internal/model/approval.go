package model

import "time"

// ApprovalStatus is the lifecycle state of a queued approval.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Approval holds a matched rule's actions until the user decides.
// Only PENDING approvals can change status, and only once.
type Approval struct {
	ID        string         `json:"id"`
	UserID    int            `json:"user_id"`
	RuleID    string         `json:"rule_id"`
	RuleName  string         `json:"rule_name"`
	Email     Email          `json:"email"`
	Actions   []Action       `json:"actions"`
	Reason    string         `json:"reason"`
	Status    ApprovalStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
}
