package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/repository"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
)

type permissionRepository interface {
	List(ctx context.Context, filter models.PermissionFilter) ([]models.Permission, int, error)
	FindByID(ctx context.Context, id string) (*models.Permission, error)
	FindByName(ctx context.Context, name string) (*models.Permission, error)
	Create(ctx context.Context, perm *models.Permission) error
	Update(ctx context.Context, perm *models.Permission) error
	Delete(ctx context.Context, id string) error
}

// PermissionService manages the permission registry.
type PermissionService struct {
	repo      permissionRepository
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPermissionService creates an instance of PermissionService.
func NewPermissionService(repo permissionRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = contract.NewValidator()
	}
	return &PermissionService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns one page of permissions. The boolean reports a cache hit.
func (s *PermissionService) List(ctx context.Context, filter models.PermissionFilter) (pagination.Page[models.Permission], bool, error) {
	req := pagination.Normalize(pagination.Request{Page: filter.Page, Limit: filter.Limit})
	filter.Page, filter.Limit = req.Page, req.Limit
	filter.Search = strings.TrimSpace(filter.Search)

	return cached(ctx, s.cache, ListKey(ResourcePermissions, filter), func() (pagination.Page[models.Permission], error) {
		perms, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return pagination.Page[models.Permission]{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list permissions")
		}
		return pagination.New(perms, req, total), nil
	})
}

// Get returns a permission by id.
func (s *PermissionService) Get(ctx context.Context, id string) (*models.Permission, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "permission not found")
	}
	perm, _, err := cached(ctx, s.cache, DetailKey(ResourcePermissions, id), func() (*models.Permission, error) {
		return s.find(ctx, id)
	})
	return perm, err
}

func (s *PermissionService) find(ctx context.Context, id string) (*models.Permission, error) {
	perm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "permission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load permission")
	}
	return perm, nil
}

// Create registers a new permission. Names are unique.
func (s *PermissionService) Create(ctx context.Context, req contract.CreatePermissionRequest, meta models.RequestMeta) (*models.Permission, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, contract.ValidationError(err, "invalid permission payload")
	}
	if err := s.ensureNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	perm := &models.Permission{Name: req.Name, Description: req.Description}
	if err := s.repo.Create(ctx, perm); err != nil {
		return nil, s.mapWriteError(err, "failed to create permission")
	}

	_ = s.cache.InvalidateTags(ctx, ResourcePermissions, perm.ID)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionPermissionCreate, ResourcePermissions, perm.ID, nil, perm)
	return perm, nil
}

// Update renames or re-describes a permission. A permission held by any role cannot be renamed.
func (s *PermissionService) Update(ctx context.Context, id string, req contract.UpdatePermissionRequest, meta models.RequestMeta) (*models.Permission, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		req.Description = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, contract.ValidationError(err, "invalid permission payload")
	}
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "permission not found")
	}

	perm, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *perm

	if req.Name != nil && *req.Name != perm.Name {
		if perm.RoleCount > 0 {
			return nil, appErrors.Clone(appErrors.ErrInUse, "permission is assigned to roles and cannot be renamed")
		}
		if err := s.ensureNameFree(ctx, *req.Name, perm.ID); err != nil {
			return nil, err
		}
		perm.Name = *req.Name
	}
	if req.Description != nil {
		perm.Description = *req.Description
	}

	if err := s.repo.Update(ctx, perm); err != nil {
		return nil, s.mapWriteError(err, "failed to update permission")
	}

	_ = s.cache.InvalidateTags(ctx, ResourcePermissions, perm.ID)
	_ = s.cache.InvalidateResource(ctx, ResourceRoles)
	_ = s.cache.InvalidateResource(ctx, ResourceRBAC)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionPermissionUpdate, ResourcePermissions, perm.ID, before, perm)
	return perm, nil
}

// Delete removes a permission that no role holds.
func (s *PermissionService) Delete(ctx context.Context, id string, meta models.RequestMeta) error {
	id, ok := canonicalID(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "permission not found")
	}
	perm, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if perm.RoleCount > 0 {
		return appErrors.Clone(appErrors.ErrInUse, "permission is assigned to roles")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "permission not found")
		}
		return s.mapWriteError(err, "failed to delete permission")
	}

	_ = s.cache.InvalidateTags(ctx, ResourcePermissions, id)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionPermissionDelete, ResourcePermissions, id, perm, nil)
	return nil
}

func (s *PermissionService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check permission name")
	}
	if existing != nil && existing.ID != selfID {
		return appErrors.WithFields(appErrors.Clone(appErrors.ErrDuplicateName, "permission name already exists"), map[string]string{"name": "already exists"})
	}
	return nil
}

func (s *PermissionService) mapWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrDuplicateName, "permission name already exists")
	case errors.Is(err, repository.ErrReferenced):
		return appErrors.Clone(appErrors.ErrInUse, "permission is assigned to roles")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
