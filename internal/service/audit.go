package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
)

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// recordAudit writes an audit entry; failures are logged and swallowed.
func recordAudit(ctx context.Context, repo auditRecorder, logger *zap.Logger, meta models.RequestMeta, action, resource, resourceID string, oldValue, newValue interface{}) {
	if repo == nil {
		return
	}
	entry := models.NewAuditLog(meta, action, resource, resourceID)
	entry.OldValues = marshalAudit(oldValue)
	entry.NewValues = marshalAudit(newValue)
	if err := repo.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
