package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailpilot/internal/apperr"
	"mailpilot/internal/model"
	"mailpilot/internal/service"
)

type Drafter interface {
	Draft(ctx context.Context, email model.Email, action model.Action) service.DraftOutcome
}

type DraftHandler struct {
	drafter Drafter
}

func NewDraftHandler(drafter Drafter) *DraftHandler {
	return &DraftHandler{drafter: drafter}
}

type draftPreviewRequest struct {
	ThreadID     string `json:"thread_id"`
	From         string `json:"from" binding:"required"`
	To           string `json:"to"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	Instructions string `json:"instructions"`
}

// Preview handles POST /drafts/preview. It drafts a knowledge-grounded reply
// without storing or sending anything.
func (h *DraftHandler) Preview(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req draftPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	email := model.Email{
		UserID:   uid,
		ThreadID: req.ThreadID,
		From:     req.From,
		To:       req.To,
		Subject:  req.Subject,
		Body:     req.Body,
	}
	action := model.Action{
		Type:   model.ActionDraftEmail,
		Params: map[string]string{model.ParamContent: req.Instructions},
	}

	out := h.drafter.Draft(c.Request.Context(), email, action)
	switch {
	case !out.Grounded:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no knowledge base entries"})
	case out.Err != nil:
		if apperr.Is(out.Err, apperr.CodeDraftGeneration) {
			writeError(c, out.Err)
			return
		}
		writeError(c, apperr.NewDraftGeneration(out.Err))
	default:
		c.JSON(http.StatusOK, gin.H{"reply": out.Reply})
	}
}
