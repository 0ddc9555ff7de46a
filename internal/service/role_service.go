package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/repository"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
)

type roleRepository interface {
	List(ctx context.Context, filter models.RoleFilter) ([]models.Role, int, error)
	FindByID(ctx context.Context, id string) (*models.Role, error)
	FindByName(ctx context.Context, name string) (*models.Role, error)
	Create(ctx context.Context, role *models.Role, permissionIDs []string) error
	Update(ctx context.Context, role *models.Role, permissionIDs []string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.RoleStats, error)
}

type permissionLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Permission, error)
}

// RoleService manages roles and their permission sets.
type RoleService struct {
	repo        roleRepository
	permissions permissionLookup
	audit       auditRecorder
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRoleService creates an instance of RoleService.
func NewRoleService(repo roleRepository, permissions permissionLookup, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = contract.NewValidator()
	}
	return &RoleService{repo: repo, permissions: permissions, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns one page of roles with their permissions.
func (s *RoleService) List(ctx context.Context, filter models.RoleFilter) (pagination.Page[models.Role], bool, error) {
	req := pagination.Normalize(pagination.Request{Page: filter.Page, Limit: filter.Limit})
	filter.Page, filter.Limit = req.Page, req.Limit
	filter.Search = strings.TrimSpace(filter.Search)

	return cached(ctx, s.cache, ListKey(ResourceRoles, filter), func() (pagination.Page[models.Role], error) {
		roles, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return pagination.Page[models.Role]{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
		}
		return pagination.New(roles, req, total), nil
	})
}

// Get returns a role by id.
func (s *RoleService) Get(ctx context.Context, id string) (*models.Role, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
	}
	role, _, err := cached(ctx, s.cache, DetailKey(ResourceRoles, id), func() (*models.Role, error) {
		return s.find(ctx, id)
	})
	return role, err
}

func (s *RoleService) find(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	return role, nil
}

// Create stores a role and its permission set. Any unknown permission id rejects the whole request.
func (s *RoleService) Create(ctx context.Context, req contract.CreateRoleRequest, meta models.RequestMeta) (*models.Role, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, contract.ValidationError(err, "invalid role payload")
	}
	if err := s.ensureNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}
	perms, err := s.resolvePermissions(ctx, req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	role := &models.Role{Name: req.Name, Description: req.Description}
	ids := idsOf(perms)
	if err := s.repo.Create(ctx, role, ids); err != nil {
		return nil, s.mapWriteError(err, "failed to create role")
	}
	role.Permissions = perms

	_ = s.cache.InvalidateTags(ctx, ResourceRoles, role.ID)
	_ = s.cache.InvalidateTags(ctx, ResourcePermissions, ids...)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionRoleCreate, ResourceRoles, role.ID, nil, role)
	return role, nil
}

// Update changes a role. When PermissionIDs is given the stored set becomes exactly that set.
func (s *RoleService) Update(ctx context.Context, id string, req contract.UpdateRoleRequest, meta models.RequestMeta) (*models.Role, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		req.Description = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, contract.ValidationError(err, "invalid role payload")
	}
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
	}

	role, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *role
	previousIDs := role.PermissionIDs()

	if req.Name != nil && *req.Name != role.Name {
		if err := s.ensureNameFree(ctx, *req.Name, role.ID); err != nil {
			return nil, err
		}
		role.Name = *req.Name
	}
	if req.Description != nil {
		role.Description = *req.Description
	}

	var ids []string
	if req.PermissionIDs != nil {
		perms, err := s.resolvePermissions(ctx, req.PermissionIDs)
		if err != nil {
			return nil, err
		}
		ids = idsOf(perms)
		role.Permissions = perms
	}

	if err := s.repo.Update(ctx, role, ids); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return nil, s.mapWriteError(err, "failed to update role")
	}

	_ = s.cache.InvalidateTags(ctx, ResourceRoles, role.ID)
	_ = s.cache.InvalidateTags(ctx, ResourcePermissions, append(previousIDs, ids...)...)
	_ = s.cache.InvalidateResource(ctx, ResourceUsers)
	_ = s.cache.InvalidateResource(ctx, ResourceRBAC)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionRoleUpdate, ResourceRoles, role.ID, before, role)
	return role, nil
}

// Delete removes a role that no user holds.
func (s *RoleService) Delete(ctx context.Context, id string, meta models.RequestMeta) error {
	id, ok := canonicalID(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "role not found")
	}
	role, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if role.UserCount > 0 {
		return appErrors.Clone(appErrors.ErrInUse, fmt.Sprintf("role is assigned to %d user(s)", role.UserCount))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "role not found")
		}
		return s.mapWriteError(err, "failed to delete role")
	}

	_ = s.cache.InvalidateTags(ctx, ResourceRoles, id)
	_ = s.cache.InvalidateTags(ctx, ResourcePermissions, role.PermissionIDs()...)
	_ = s.cache.InvalidateResource(ctx, ResourceRBAC)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionRoleDelete, ResourceRoles, id, role, nil)
	return nil
}

// Stats returns role, permission and per-role user counts from one consistent snapshot.
func (s *RoleService) Stats(ctx context.Context) (*models.RoleStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role statistics")
	}
	return stats, nil
}

// resolvePermissions de-duplicates ids and loads them, failing with UNKNOWN_PERMISSION if any is missing.
func (s *RoleService) resolvePermissions(ctx context.Context, ids []string) ([]models.Permission, error) {
	var unknown []string
	valid := make([]string, 0, len(ids))
	for _, raw := range ids {
		if id, ok := canonicalID(raw); ok {
			valid = append(valid, id)
		} else if raw = strings.TrimSpace(raw); raw != "" {
			unknown = append(unknown, raw)
		}
	}
	valid = uniqueStrings(valid)
	unknown = uniqueStrings(unknown)
	if len(valid) == 0 && len(unknown) == 0 {
		return []models.Permission{}, nil
	}

	found, err := s.permissions.FindByIDs(ctx, valid)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permissions")
	}
	known := make(map[string]struct{}, len(found))
	for _, p := range found {
		known[p.ID] = struct{}{}
	}
	for _, id := range valid {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return nil, appErrors.WithFields(
			appErrors.Clone(appErrors.ErrUnknownPermission, "unknown permission ids: "+strings.Join(unknown, ", ")),
			map[string]string{"permissionIds": strings.Join(unknown, ",")},
		)
	}
	return found, nil
}

func (s *RoleService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check role name")
	}
	if existing != nil && existing.ID != selfID {
		return appErrors.WithFields(appErrors.Clone(appErrors.ErrDuplicateName, "role name already exists"), map[string]string{"name": "already exists"})
	}
	return nil
}

func (s *RoleService) mapWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrDuplicateName, "role name already exists")
	case errors.Is(err, repository.ErrReferenced):
		return appErrors.Clone(appErrors.ErrInUse, "role is assigned to users")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func idsOf(perms []models.Permission) []string {
	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return ids
}
