package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailpilot/internal/handler"
	"mailpilot/pkg/metrics"
	"mailpilot/pkg/rbac"
	"mailpilot/pkg/trace"
	"mailpilot/pkg/util"
)

// AuthMiddleware verifies the bearer token and stores the user id and role
// for handlers.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := util.ParseClaims(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(handler.UserIDKey, claims.UserID)
		c.Set(roleKey, rbac.NormalizeRole(claims.Role))
		c.Next()
	}
}

const roleKey = "role"

// RequirePermission aborts with 403 unless the token's role grants permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := rbac.CheckPermission(c.GetString(roleKey), permission); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// TraceMiddleware propagates or generates the request's trace id.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := trace.WithContext(c.Request.Context(), c.GetHeader(trace.HeaderName))
		ctx, traceID := trace.Ensure(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// MetricsMiddleware records request latency by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
