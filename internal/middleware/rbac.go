package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/response"
)

// ContextPermissionsKey stores the resolved permission set of the caller.
const ContextPermissionsKey = "effectivePermissions"

// PermissionResolver loads the permissions a user holds.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, userID string) (*models.EffectivePermissions, error)
}

// DenialRecorder counts rejected permission checks.
type DenialRecorder interface {
	RecordDenial(permission string)
}

// RBAC gates routes on named permissions.
type RBAC struct {
	resolver PermissionResolver
	denials  DenialRecorder
	audit    AuditWriter
}

// NewRBAC builds the permission gate. denials and audit may be nil.
func NewRBAC(resolver PermissionResolver, denials DenialRecorder, audit AuditWriter) *RBAC {
	return &RBAC{resolver: resolver, denials: denials, audit: audit}
}

// Require lets the request through when the caller holds every permission listed.
// Must run after JWT.
func (r *RBAC) Require(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		perms, err := r.permissionsOf(c, claims.UserID)
		if err != nil {
			if appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
				err = appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		for _, p := range permissions {
			if perms.Has(p) {
				continue
			}
			if r.denials != nil {
				r.denials.RecordDenial(p)
			}
			recordDenied(c, r.audit, claims.UserID, p)
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission "+p))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r *RBAC) permissionsOf(c *gin.Context, userID string) (*models.EffectivePermissions, error) {
	if value, ok := c.Get(ContextPermissionsKey); ok {
		if perms, ok := value.(*models.EffectivePermissions); ok && perms.UserID == userID {
			return perms, nil
		}
	}
	perms, err := r.resolver.EffectivePermissions(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}
	c.Set(ContextPermissionsKey, perms)
	return perms, nil
}
