// Package handler implements the admin HTTP API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailpilot/internal/apperr"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

func userID(c *gin.Context) (int, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	id, ok := v.(int)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return id, true
}

// writeError maps application errors to HTTP statuses with an {error} body.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	msg := appErr.Message
	switch appErr.Code {
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeInvalidRequest:
		status = http.StatusBadRequest
	case apperr.CodeConflict:
		status = http.StatusConflict
	case apperr.CodeDraftGeneration:
		status = http.StatusBadGateway
	default:
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
