package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mailpilot/internal/handler"
	"mailpilot/pkg/rbac"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the API handlers. Nil handlers leave their routes out.
type Handlers struct {
	Rules     *handler.RuleHandler
	Approvals *handler.ApprovalHandler
	Drafts    *handler.DraftHandler
	Emails    *handler.EmailHandler
	Admin     *handler.AdminHandler
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, jwtSecret string, ready Pinger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		if ready == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := ready.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		if h.Rules != nil {
			auth.GET("/rules", RequirePermission(rbac.PermissionReadRules), h.Rules.List)
			auth.PATCH("/rules/:id/automate", RequirePermission(rbac.PermissionUpdateRules), h.Rules.SetAutomate)
			auth.PATCH("/rules/:id/run-on-threads", RequirePermission(rbac.PermissionUpdateRules), h.Rules.SetRunOnThreads)
			auth.DELETE("/rules/:id", RequirePermission(rbac.PermissionDeleteRules), h.Rules.Delete)
		}
		if h.Approvals != nil {
			auth.GET("/approvals", RequirePermission(rbac.PermissionReadApprovals), h.Approvals.List)
			auth.POST("/approvals/:id/approve", RequirePermission(rbac.PermissionDecideApprovals), h.Approvals.Approve)
			auth.POST("/approvals/:id/reject", RequirePermission(rbac.PermissionDecideApprovals), h.Approvals.Reject)
		}
		if h.Drafts != nil {
			auth.POST("/drafts/preview", RequirePermission(rbac.PermissionPreviewDrafts), h.Drafts.Preview)
		}
		if h.Emails != nil {
			auth.POST("/emails/simulate", RequirePermission(rbac.PermissionSimulateEmails), h.Emails.Simulate)
		}
		if h.Admin != nil {
			admin := auth.Group("/admin", RequirePermission(rbac.PermissionReplayOutbox))
			admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
			admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
		}
	}

	return &Router{Engine: r}
}
