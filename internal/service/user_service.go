package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/repository"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
)

// maxManagerDepth bounds the walk up a manager chain.
const maxManagerDepth = 64

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	ListAll(ctx context.Context, filter models.UserFilter, max int) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdateRole(ctx context.Context, id, roleID string) error
	Delete(ctx context.Context, id string) error
	BulkUpdateStatus(ctx context.Context, ids []string, status models.UserStatus) ([]string, error)
	BulkDelete(ctx context.Context, ids []string) ([]string, error)
}

type roleLookup interface {
	FindByID(ctx context.Context, id string) (*models.Role, error)
}

type localityLookup interface {
	FindCities(ctx context.Context, ids []string) ([]models.City, error)
	FindLocalities(ctx context.Context, ids []string) ([]models.Locality, error)
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	roles     roleLookup
	locations localityLookup
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, roles roleLookup, locations localityLookup, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = contract.NewValidator()
	}
	return &UserService{repo: repo, roles: roles, locations: locations, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns one page of users matching filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) (pagination.Page[models.User], bool, error) {
	if err := validateUserFilter(&filter); err != nil {
		return pagination.Page[models.User]{}, false, err
	}
	req := pagination.Normalize(pagination.Request{Page: filter.Page, Limit: filter.Limit})
	filter.Page, filter.Limit = req.Page, req.Limit

	return cached(ctx, s.cache, ListKey(ResourceUsers, filter), func() (pagination.Page[models.User], error) {
		users, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return pagination.Page[models.User]{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
		}
		return pagination.New(users, req, total), nil
	})
}

func validateUserFilter(filter *models.UserFilter) error {
	filter.Search = strings.TrimSpace(filter.Search)
	roleIDs, ok := canonicalIDs(filter.RoleIDs)
	if !ok {
		return appErrors.Validation("roleIds", "contains an invalid role id")
	}
	filter.RoleIDs = roleIDs
	for i, status := range filter.Statuses {
		status = models.UserStatus(strings.ToUpper(strings.TrimSpace(string(status))))
		if !status.Valid() {
			return appErrors.Validation("statuses", fmt.Sprintf("unknown status %q", status))
		}
		filter.Statuses[i] = status
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return appErrors.Validation("createdFrom", "must not be after createdTo")
	}
	filter.CityIDs = uniqueStrings(filter.CityIDs)
	filter.LocalityIDs = uniqueStrings(filter.LocalityIDs)
	return nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	user, _, err := cached(ctx, s.cache, DetailKey(ResourceUsers, id), func() (*models.User, error) {
		return s.find(ctx, id)
	})
	return user, err
}

func (s *UserService) find(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create validates and stores a new user. Localities outside the user's cities are dropped.
func (s *UserService) Create(ctx context.Context, req contract.CreateUserRequest, meta models.RequestMeta) (*models.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = trimOptional(req.Phone)
	req.ManagerID = trimOptional(req.ManagerID)
	if req.ManagerID != nil && *req.ManagerID == "" {
		req.ManagerID = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, contract.ValidationError(err, "invalid user payload")
	}
	if req.ManagerID != nil {
		managerID, err := canonicalManagerID(*req.ManagerID)
		if err != nil {
			return nil, err
		}
		req.ManagerID = &managerID
	}

	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}
	role, err := s.loadRole(ctx, req.RoleID)
	if err != nil {
		return nil, err
	}
	cities, localities, err := s.scopeLocations(ctx, req.Cities, req.Localities)
	if err != nil {
		return nil, err
	}
	if req.ManagerID != nil {
		if err := s.checkManager(ctx, "", *req.ManagerID); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	status := req.Status
	if status == "" {
		status = models.UserStatusActive
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		RoleName:     role.Name,
		Status:       status,
		Cities:       cities,
		Localities:   localities,
		ManagerID:    req.ManagerID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, s.mapWriteError(err, "failed to create user")
	}

	_ = s.cache.InvalidateTags(ctx, ResourceUsers, user.ID)
	_ = s.cache.InvalidateTags(ctx, ResourceRoles, role.ID)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionUserCreate, ResourceUsers, user.ID, nil, user)
	return user, nil
}

// Update applies a partial update. Changing cities re-filters the stored localities.
func (s *UserService) Update(ctx context.Context, id string, req contract.UpdateUserRequest, meta models.RequestMeta) (*models.User, error) {
	req.FirstName = trimOptional(req.FirstName)
	req.LastName = trimOptional(req.LastName)
	req.Phone = trimOptional(req.Phone)
	req.ManagerID = trimOptional(req.ManagerID)
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, contract.ValidationError(err, "invalid user payload")
	}
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *user
	previousRole := user.RoleID

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Email != nil && *req.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *req.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = *req.Email
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.RoleID != nil {
		role, err := s.loadRole(ctx, *req.RoleID)
		if err != nil {
			return nil, err
		}
		user.RoleID, user.RoleName = role.ID, role.Name
	}
	if req.Cities != nil || req.Localities != nil {
		cities := []string(user.Cities)
		if req.Cities != nil {
			cities = req.Cities
		}
		localities := []string(user.Localities)
		if req.Localities != nil {
			localities = req.Localities
		}
		scopedCities, scopedLocalities, err := s.scopeLocations(ctx, cities, localities)
		if err != nil {
			return nil, err
		}
		user.Cities, user.Localities = scopedCities, scopedLocalities
	}
	if req.ManagerID != nil {
		if *req.ManagerID == "" {
			user.ManagerID = nil
		} else {
			managerID, err := canonicalManagerID(*req.ManagerID)
			if err != nil {
				return nil, err
			}
			if err := s.checkManager(ctx, user.ID, managerID); err != nil {
				return nil, err
			}
			user.ManagerID = &managerID
		}
	}

	user.PasswordHash = ""
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, s.mapWriteError(err, "failed to update user")
	}

	s.invalidateUsers(ctx, user.ID)
	if previousRole != user.RoleID {
		_ = s.cache.InvalidateTags(ctx, ResourceRoles, previousRole, user.RoleID)
	}
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionUserUpdate, ResourceUsers, user.ID, before, user)
	return user, nil
}

// Delete hard-deletes a user. Users it managed lose their manager.
func (s *UserService) Delete(ctx context.Context, id string, meta models.RequestMeta) error {
	id, ok := canonicalID(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return s.mapWriteError(err, "failed to delete user")
	}

	_ = s.cache.InvalidateResource(ctx, ResourceUsers)
	_ = s.cache.InvalidateTags(ctx, ResourceRoles, user.RoleID)
	_ = s.cache.InvalidateTags(ctx, ResourceRBAC, id)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionUserDelete, ResourceUsers, id, user, nil)
	return nil
}

// UpdateStatus sets a user's status. Any status may follow any other, and repeating a status is a no-op.
func (s *UserService) UpdateStatus(ctx context.Context, id string, status models.UserStatus, meta models.RequestMeta) (*models.User, error) {
	if !status.Valid() {
		return nil, appErrors.Validation("status", contract.Message("userstatus"))
	}
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}
	s.invalidateUsers(ctx, id)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionUserStatus, ResourceUsers, id, nil, map[string]models.UserStatus{"status": status})
	return s.find(ctx, id)
}

// AssignRole binds a user to a role.
func (s *UserService) AssignRole(ctx context.Context, id, roleID string, meta models.RequestMeta) (*models.User, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	role, err := s.loadRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if user.RoleID == role.ID {
		return user, nil
	}
	previousRole := user.RoleID
	if err := s.repo.UpdateRole(ctx, id, role.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, s.mapWriteError(err, "failed to assign role")
	}
	user.RoleID, user.RoleName = role.ID, role.Name

	s.invalidateUsers(ctx, id)
	_ = s.cache.InvalidateTags(ctx, ResourceRoles, previousRole, role.ID)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionUserRole, ResourceUsers, id,
		map[string]string{"roleId": previousRole}, map[string]string{"roleId": role.ID})
	return user, nil
}

// GetRole returns the role (with permissions) held by a user.
func (s *UserService) GetRole(ctx context.Context, id string) (*models.Role, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.loadRole(ctx, user.RoleID)
}

// Bulk applies op to every id. Unknown ids are reported and skipped; duplicates count once.
func (s *UserService) Bulk(ctx context.Context, req contract.BulkUserRequest, meta models.RequestMeta) (*models.BulkResult, error) {
	req.Operation = models.BulkOperation(strings.ToLower(string(req.Operation)))
	if err := s.validator.Struct(req); err != nil {
		return nil, contract.ValidationError(err, "invalid bulk payload")
	}

	// Ids are compared in canonical form so that the ids the database reports back match.
	ids := make([]string, 0, len(req.UserIDs))
	valid := make([]string, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, ok := canonicalID(raw)
		if !ok {
			ids = append(ids, strings.TrimSpace(raw))
			continue
		}
		ids = append(ids, id)
		valid = append(valid, id)
	}
	ids = uniqueStrings(ids)
	valid = uniqueStrings(valid)

	applied, failed := s.applyBulk(ctx, req.Operation, valid)

	result := &models.BulkResult{Results: make([]models.BulkItemResult, 0, len(ids))}
	var notFound int
	for _, id := range ids {
		item := models.BulkItemResult{ID: id}
		switch {
		case applied[id]:
			item.Outcome = models.BulkOutcomeProcessed
			result.Processed++
		case failed[id] != nil:
			item.Outcome = models.BulkOutcomeFailed
			item.Error = appErrors.FromError(failed[id]).Message
		default:
			item.Outcome = models.BulkOutcomeNotFound
			item.Error = "user not found"
			notFound++
		}
		result.Results = append(result.Results, item)
	}
	result.Message = bulkMessage(req.Operation, result.Processed, len(ids), notFound, len(failed))

	if result.Processed > 0 {
		_ = s.cache.InvalidateResource(ctx, ResourceUsers)
		if req.Operation == models.BulkDelete {
			_ = s.cache.InvalidateResource(ctx, ResourceRoles)
			_ = s.cache.InvalidateResource(ctx, ResourceRBAC)
		}
	}
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionUserBulk, ResourceUsers, "", req, result)
	return result, nil
}

// applyBulk runs the batched statement; if it fails it falls back to one statement per id.
func (s *UserService) applyBulk(ctx context.Context, op models.BulkOperation, ids []string) (map[string]bool, map[string]error) {
	applied := make(map[string]bool, len(ids))
	failed := make(map[string]error)
	if len(ids) == 0 {
		return applied, failed
	}

	var done []string
	var err error
	switch op {
	case models.BulkActivate:
		done, err = s.repo.BulkUpdateStatus(ctx, ids, models.UserStatusActive)
	case models.BulkDeactivate:
		done, err = s.repo.BulkUpdateStatus(ctx, ids, models.UserStatusInactive)
	case models.BulkDelete:
		done, err = s.repo.BulkDelete(ctx, ids)
	}
	if err == nil {
		for _, id := range done {
			applied[id] = true
		}
		return applied, failed
	}

	s.logger.Warn("bulk user operation failed, retrying per id", zap.String("operation", string(op)), zap.Error(err))
	for _, id := range ids {
		var itemErr error
		switch op {
		case models.BulkActivate:
			itemErr = s.repo.UpdateStatus(ctx, id, models.UserStatusActive)
		case models.BulkDeactivate:
			itemErr = s.repo.UpdateStatus(ctx, id, models.UserStatusInactive)
		case models.BulkDelete:
			itemErr = s.repo.Delete(ctx, id)
		}
		switch {
		case itemErr == nil:
			applied[id] = true
		case errors.Is(itemErr, sql.ErrNoRows):
		default:
			failed[id] = s.mapWriteError(itemErr, "operation failed")
		}
	}
	return applied, failed
}

func bulkMessage(op models.BulkOperation, processed, requested, notFound, failed int) string {
	verb := map[models.BulkOperation]string{
		models.BulkActivate:   "activated",
		models.BulkDeactivate: "deactivated",
		models.BulkDelete:     "deleted",
	}[op]
	msg := fmt.Sprintf("%d of %d user(s) %s", processed, requested, verb)
	if notFound > 0 {
		msg += fmt.Sprintf("; %d not found", notFound)
	}
	if failed > 0 {
		msg += fmt.Sprintf("; %d failed", failed)
	}
	return msg
}

func (s *UserService) loadRole(ctx context.Context, roleID string) (*models.Role, error) {
	roleID, ok := canonicalID(roleID)
	if !ok {
		return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrNotFound, "role not found"), map[string]string{"roleId": "unknown role"})
	}
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.WithFields(appErrors.Clone(appErrors.ErrNotFound, "role not found"), map[string]string{"roleId": "unknown role"})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	return role, nil
}

// scopeLocations checks cities exist and keeps only the localities that belong to one of them.
func (s *UserService) scopeLocations(ctx context.Context, cityIDs, localityIDs []string) ([]string, []string, error) {
	cityIDs = uniqueStrings(cityIDs)
	if len(cityIDs) == 0 {
		return nil, nil, appErrors.Validation("cities", "at least one city is required")
	}
	cities, err := s.locations.FindCities(ctx, cityIDs)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cities")
	}
	knownCities := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		knownCities[c.ID] = struct{}{}
	}
	for _, id := range cityIDs {
		if _, ok := knownCities[id]; !ok {
			return nil, nil, appErrors.Validation("cities", fmt.Sprintf("unknown city %q", id))
		}
	}

	localityIDs = uniqueStrings(localityIDs)
	kept := make([]string, 0, len(localityIDs))
	if len(localityIDs) == 0 {
		return cityIDs, kept, nil
	}
	localities, err := s.locations.FindLocalities(ctx, localityIDs)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load localities")
	}
	cityOf := make(map[string]string, len(localities))
	for _, l := range localities {
		cityOf[l.ID] = l.CityID
	}
	for _, id := range localityIDs {
		city, ok := cityOf[id]
		if !ok {
			continue
		}
		if _, inScope := knownCities[city]; inScope {
			kept = append(kept, id)
		}
	}
	return cityIDs, kept, nil
}

// checkManager verifies managerID exists, is not selfID and does not lead back to selfID.
func (s *UserService) checkManager(ctx context.Context, selfID, managerID string) error {
	if selfID != "" && managerID == selfID {
		return appErrors.Validation("managerId", "a user cannot manage themselves")
	}
	manager, err := s.repo.FindByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.WithFields(appErrors.Clone(appErrors.ErrNotFound, "manager not found"), map[string]string{"managerId": "unknown user"})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manager")
	}
	if selfID == "" {
		return nil
	}

	current := manager
	for depth := 0; current.ManagerID != nil && depth < maxManagerDepth; depth++ {
		next := *current.ManagerID
		if next == selfID {
			return appErrors.Validation("managerId", "manager assignment would create a cycle")
		}
		current, err = s.repo.FindByID(ctx, next)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk manager chain")
		}
	}
	return nil
}

func canonicalManagerID(raw string) (string, error) {
	id, ok := canonicalID(raw)
	if !ok {
		return "", appErrors.WithFields(appErrors.Clone(appErrors.ErrNotFound, "manager not found"), map[string]string{"managerId": "unknown user"})
	}
	return id, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if existing != nil && existing.ID != selfID {
		return appErrors.WithFields(appErrors.Clone(appErrors.ErrDuplicateEmail, "email already registered"), map[string]string{"email": "already registered"})
	}
	return nil
}

func (s *UserService) mapWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrDuplicateEmail, "email already registered")
	case errors.Is(err, repository.ErrReferenced):
		return appErrors.Clone(appErrors.ErrNotFound, "referenced role or manager not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *UserService) invalidateUsers(ctx context.Context, ids ...string) {
	_ = s.cache.InvalidateTags(ctx, ResourceUsers, ids...)
	_ = s.cache.InvalidateTags(ctx, ResourceRBAC, ids...)
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
