package middleware

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
)

// AuditWriter persists audit entries.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RequestMeta collects the caller details recorded in audit logs.
func RequestMeta(c *gin.Context) models.RequestMeta {
	meta := models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := Claims(c); claims != nil {
		meta.ActorID = claims.UserID
	}
	return meta
}

func recordDenied(c *gin.Context, audit AuditWriter, userID, permission string) {
	if audit == nil {
		return
	}
	body, _ := json.Marshal(map[string]interface{}{
		"path":       c.FullPath(),
		"method":     c.Request.Method,
		"permission": permission,
	})
	entry := models.NewAuditLog(RequestMeta(c), models.AuditActionAccessDenied, "rbac", userID)
	entry.NewValues = body
	_ = audit.CreateAuditLog(c.Request.Context(), entry)
}
