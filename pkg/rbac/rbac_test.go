package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleUser, PermissionDecideApprovals))
	assert.True(t, HasPermission("", PermissionReadRules), "empty role is a plain user")
	assert.False(t, HasPermission(RoleUser, PermissionReplayOutbox))
	assert.True(t, HasPermission(RoleAdmin, PermissionReplayOutbox))
	assert.False(t, HasPermission("guest", PermissionReadRules))
}

func TestCheckPermission(t *testing.T) {
	assert.NoError(t, CheckPermission(RoleAdmin, PermissionReplayOutbox))

	err := CheckPermission("", PermissionReplayOutbox)
	var denied *PermissionDeniedError
	if assert.True(t, errors.As(err, &denied)) {
		assert.Equal(t, RoleUser, denied.Role)
		assert.Equal(t, PermissionReplayOutbox, denied.Permission)
	}
}
