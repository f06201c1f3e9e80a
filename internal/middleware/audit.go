package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gigboard/internal/service"
)

// ContextAuditResourceKey lets a handler name the resource it touched when
// the id is not part of the route, as on create.
const ContextAuditResourceKey = "auditResourceID"

// Audit records an audit log entry after each successful request.
func Audit(audit *service.AuditService, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if audit == nil || c.Writer.Status() >= 400 || c.IsAborted() {
			return
		}

		resourceID := c.Param("id")
		if v, ok := c.Get(ContextAuditResourceKey); ok {
			if id, ok := v.(string); ok && id != "" {
				resourceID = id
			}
		}
		var userID string
		if info, ok := UserFrom(c); ok {
			userID = info.UserID
		}

		audit.Record(c.Request.Context(), service.AuditEntry{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Values: map[string]interface{}{
				"path":    c.FullPath(),
				"method":  c.Request.Method,
				"status":  c.Writer.Status(),
				"latency": time.Since(start).Milliseconds(),
			},
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
	}
}
