package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailpilot/internal/model"
)

type ApprovalService interface {
	List(ctx context.Context, userID int, status model.ApprovalStatus) ([]model.Approval, error)
	Approve(ctx context.Context, userID int, id string) (*model.Approval, error)
	Reject(ctx context.Context, userID int, id string) (*model.Approval, error)
}

type ApprovalHandler struct {
	approvals ApprovalService
	logger    *zap.Logger
}

func NewApprovalHandler(approvals ApprovalService, logger *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, logger: logger}
}

// List handles GET /approvals?status=PENDING. Without status it defaults to
// pending; status=all lists everything.
func (h *ApprovalHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	status := model.ApprovalStatus(strings.ToUpper(c.DefaultQuery("status", string(model.ApprovalPending))))
	if status == "ALL" {
		status = ""
	}

	approvals, err := h.approvals.List(c.Request.Context(), uid, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvals": approvals})
}

// Approve handles POST /approvals/:id/approve.
func (h *ApprovalHandler) Approve(c *gin.Context) {
	h.decide(c, h.approvals.Approve)
}

// Reject handles POST /approvals/:id/reject.
func (h *ApprovalHandler) Reject(c *gin.Context) {
	h.decide(c, h.approvals.Reject)
}

func (h *ApprovalHandler) decide(c *gin.Context, fn func(context.Context, int, string) (*model.Approval, error)) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	approval, err := fn(c.Request.Context(), uid, id)
	if err != nil {
		h.logger.Warn("Approval decision failed", zap.String("approval_id", id), zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, approval)
}
