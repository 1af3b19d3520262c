// Package gate decides whether a matched rule's actions run immediately or
// wait for the user's approval.
package gate

import "mailpilot/internal/model"

// Decision is the gate outcome for a matched rule.
type Decision string

const (
	ExecuteNow       Decision = "EXECUTE_NOW"
	QueueForApproval Decision = "QUEUE_FOR_APPROVAL"
)

// Decide returns ExecuteNow iff the rule is automated.
func Decide(rule model.Rule) Decision {
	if rule.Automate {
		return ExecuteNow
	}
	return QueueForApproval
}
