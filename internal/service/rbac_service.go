package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
)

type rbacUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RBACService resolves what a user may do.
type RBACService struct {
	users          rbacUserLookup
	roles          roleLookup
	cache          *CacheService
	superAdminRole string
	logger         *zap.Logger
}

// NewRBACService constructs the resolver. superAdminRole names the role that holds every permission.
func NewRBACService(users rbacUserLookup, roles roleLookup, cache *CacheService, superAdminRole string, logger *zap.Logger) *RBACService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RBACService{users: users, roles: roles, cache: cache, superAdminRole: superAdminRole, logger: logger}
}

// EffectivePermissions returns the permission names granted to userID through its role.
func (s *RBACService) EffectivePermissions(ctx context.Context, userID string) (*models.EffectivePermissions, error) {
	userID, ok := canonicalID(userID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	perms, _, err := cached(ctx, s.cache, DetailKey(ResourceRBAC, userID), func() (*models.EffectivePermissions, error) {
		return s.resolve(ctx, userID)
	})
	return perms, err
}

func (s *RBACService) resolve(ctx context.Context, userID string) (*models.EffectivePermissions, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	role, err := s.roles.FindByID(ctx, user.RoleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	return &models.EffectivePermissions{
		UserID:      user.ID,
		RoleID:      role.ID,
		RoleName:    role.Name,
		SuperAdmin:  s.IsSuperAdmin(role.Name),
		Permissions: role.PermissionNames(),
	}, nil
}

// IsSuperAdmin reports whether roleName bypasses permission checks.
func (s *RBACService) IsSuperAdmin(roleName string) bool {
	return s.superAdminRole != "" && strings.EqualFold(roleName, s.superAdminRole)
}

// Check answers whether userID holds permission.
func (s *RBACService) Check(ctx context.Context, userID, permission string) (*models.PermissionCheck, error) {
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return nil, appErrors.Validation("permission", contract.Message("required"))
	}
	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.PermissionCheck{UserID: userID, Permission: permission, Allowed: perms.Has(permission)}, nil
}
