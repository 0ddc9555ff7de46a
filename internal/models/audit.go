package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionUserCreate       = "USER_CREATE"
	AuditActionUserUpdate       = "USER_UPDATE"
	AuditActionUserDelete       = "USER_DELETE"
	AuditActionUserStatus       = "USER_STATUS"
	AuditActionUserRole         = "USER_ROLE"
	AuditActionUserBulk         = "USER_BULK"
	AuditActionUserExport       = "USER_EXPORT"
	AuditActionRoleCreate       = "ROLE_CREATE"
	AuditActionRoleUpdate       = "ROLE_UPDATE"
	AuditActionRoleDelete       = "ROLE_DELETE"
	AuditActionPermissionCreate = "PERMISSION_CREATE"
	AuditActionPermissionUpdate = "PERMISSION_UPDATE"
	AuditActionPermissionDelete = "PERMISSION_DELETE"
	AuditActionPropertyCreate   = "PROPERTY_CREATE"
	AuditActionPropertyUpdate   = "PROPERTY_UPDATE"
	AuditActionPropertyDelete   = "PROPERTY_DELETE"
	AuditActionAccessDenied     = "ACCESS_DENIED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// NewAuditLog fills the actor fields of an audit entry from request metadata.
func NewAuditLog(meta RequestMeta, action, resource, resourceID string) *AuditLog {
	entry := &AuditLog{
		Action:    action,
		Resource:  resource,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if meta.ActorID != "" {
		actor := meta.ActorID
		entry.UserID = &actor
	}
	if resourceID != "" {
		rid := resourceID
		entry.ResourceID = &rid
	}
	return entry
}
