// Package rbac maps token roles to the operations they may perform.
package rbac

const (
	PermissionReadRules       = "rules:read"
	PermissionUpdateRules     = "rules:update"
	PermissionDeleteRules     = "rules:delete"
	PermissionReadApprovals   = "approvals:read"
	PermissionDecideApprovals = "approvals:decide"
	PermissionPreviewDrafts   = "drafts:preview"
	PermissionSimulateEmails  = "emails:simulate"

	// Replaying outbox events can re-run actions; admin only.
	PermissionReplayOutbox = "outbox:replay"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadRules,
		PermissionUpdateRules,
		PermissionDeleteRules,
		PermissionReadApprovals,
		PermissionDecideApprovals,
		PermissionPreviewDrafts,
		PermissionSimulateEmails,
	},
	RoleAdmin: {
		PermissionReadRules,
		PermissionUpdateRules,
		PermissionDeleteRules,
		PermissionReadApprovals,
		PermissionDecideApprovals,
		PermissionPreviewDrafts,
		PermissionSimulateEmails,
		PermissionReplayOutbox,
	},
}

// NormalizeRole maps an empty role to RoleUser.
func NormalizeRole(role string) string {
	if role == "" {
		return RoleUser
	}
	return role
}

// HasPermission reports whether role grants permission. Unknown roles grant nothing.
func HasPermission(role, permission string) bool {
	permissions, ok := rolePermissions[NormalizeRole(role)]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning a *PermissionDeniedError.
func CheckPermission(role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       NormalizeRole(role),
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
