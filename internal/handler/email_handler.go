package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailpilot/internal/model"
)

type Ingester interface {
	Ingest(ctx context.Context, email model.Email) error
}

type EmailHandler struct {
	ingest Ingester
	logger *zap.Logger
}

func NewEmailHandler(ingest Ingester, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{ingest: ingest, logger: logger}
}

type simulateEmailRequest struct {
	EmailID          int        `json:"email_id" binding:"required,gt=0"`
	ThreadID         string     `json:"thread_id"`
	From             string     `json:"from" binding:"required"`
	To               string     `json:"to"`
	Subject          string     `json:"subject"`
	Body             string     `json:"body"`
	Date             *time.Time `json:"date"`
	IsThreadFollowUp bool       `json:"is_thread_follow_up"`
}

// Simulate handles POST /emails/simulate: it publishes an email as if it had
// just arrived, so rules can be tried end to end.
func (h *EmailHandler) Simulate(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req simulateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	email := model.Email{
		ID:               req.EmailID,
		UserID:           uid,
		ThreadID:         req.ThreadID,
		From:             req.From,
		To:               req.To,
		Subject:          req.Subject,
		Body:             req.Body,
		Date:             req.Date,
		IsThreadFollowUp: req.IsThreadFollowUp,
	}
	if err := h.ingest.Ingest(c.Request.Context(), email); err != nil {
		h.logger.Error("Failed to ingest email", zap.Int("email_id", req.EmailID), zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"email_id": req.EmailID, "status": "queued"})
}
