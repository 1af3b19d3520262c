package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailpilot/internal/model"
)

type RuleService interface {
	ListRules(ctx context.Context, userID int) ([]model.Rule, error)
	SetAutomate(ctx context.Context, userID int, ruleID string, value bool) error
	SetRunOnThreads(ctx context.Context, userID int, ruleID string, value bool) error
	Delete(ctx context.Context, userID int, ruleID string) error
}

type RuleHandler struct {
	rules  RuleService
	logger *zap.Logger
}

func NewRuleHandler(rules RuleService, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, logger: logger}
}

type ruleView struct {
	model.Rule
	TypeLabel string `json:"type_label"`
	Condition string `json:"condition"`
}

type toggleRequest struct {
	Value *bool `json:"value" binding:"required"`
}

// List handles GET /rules. Enabled rules are listed first.
func (h *RuleHandler) List(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	rules, err := h.rules.ListRules(c.Request.Context(), uid)
	if err != nil {
		h.logger.Error("Failed to list rules", zap.Int("user_id", uid), zap.Error(err))
		writeError(c, err)
		return
	}

	model.SortForDisplay(rules)
	views := make([]ruleView, len(rules))
	for i := range rules {
		views[i] = ruleView{
			Rule:      rules[i],
			TypeLabel: rules[i].Type.String(),
			Condition: rules[i].Condition(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"rules": views})
}

// SetAutomate handles PATCH /rules/:id/automate.
func (h *RuleHandler) SetAutomate(c *gin.Context) {
	h.toggle(c, "automate", h.rules.SetAutomate)
}

// SetRunOnThreads handles PATCH /rules/:id/run-on-threads.
func (h *RuleHandler) SetRunOnThreads(c *gin.Context) {
	h.toggle(c, "run_on_threads", h.rules.SetRunOnThreads)
}

func (h *RuleHandler) toggle(c *gin.Context, field string, set func(context.Context, int, string, bool) error) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ruleID := c.Param("id")
	if err := set(c.Request.Context(), uid, ruleID, *req.Value); err != nil {
		h.logger.Error("Failed to update rule",
			zap.String("field", field),
			zap.String("rule_id", ruleID),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": ruleID, field: *req.Value})
}

// Delete handles DELETE /rules/:id.
func (h *RuleHandler) Delete(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ruleID := c.Param("id")
	if err := h.rules.Delete(c.Request.Context(), uid, ruleID); err != nil {
		h.logger.Error("Failed to delete rule", zap.String("rule_id", ruleID), zap.Error(err))
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
