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

type propertyRepository interface {
	List(ctx context.Context, filter models.PropertyFilter) ([]models.Property, int, error)
	FindByID(ctx context.Context, id string) (*models.Property, error)
	Create(ctx context.Context, prop *models.Property) error
	Update(ctx context.Context, prop *models.Property) error
	UpdateStatus(ctx context.Context, id string, status models.PropertyStatus) error
	Delete(ctx context.Context, id string) error
}

// PropertyService manages property listings.
type PropertyService struct {
	repo      propertyRepository
	locations localityLookup
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPropertyService creates an instance of PropertyService.
func NewPropertyService(repo propertyRepository, locations localityLookup, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PropertyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = contract.NewValidator()
	}
	return &PropertyService{repo: repo, locations: locations, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns one page of properties.
func (s *PropertyService) List(ctx context.Context, filter models.PropertyFilter) (pagination.Page[models.Property], bool, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return pagination.Page[models.Property]{}, false, appErrors.Validation("minPrice", "must not exceed maxPrice")
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return pagination.Page[models.Property]{}, false, appErrors.Validation("createdFrom", "must not be after createdTo")
	}
	req := pagination.Normalize(pagination.Request{Page: filter.Page, Limit: filter.Limit})
	filter.Page, filter.Limit = req.Page, req.Limit

	return cached(ctx, s.cache, ListKey(ResourceProperties, filter), func() (pagination.Page[models.Property], error) {
		props, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return pagination.Page[models.Property]{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list properties")
		}
		return pagination.New(props, req, total), nil
	})
}

// Get returns a property by id.
func (s *PropertyService) Get(ctx context.Context, id string) (*models.Property, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "property not found")
	}
	prop, _, err := cached(ctx, s.cache, DetailKey(ResourceProperties, id), func() (*models.Property, error) {
		return s.find(ctx, id)
	})
	return prop, err
}

func (s *PropertyService) find(ctx context.Context, id string) (*models.Property, error) {
	prop, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "property not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load property")
	}
	return prop, nil
}

// Create stores a new property. New listings start as DRAFT unless a status is given.
func (s *PropertyService) Create(ctx context.Context, req contract.PropertyRequest, meta models.RequestMeta) (*models.Property, error) {
	if err := s.normalise(ctx, &req); err != nil {
		return nil, err
	}
	prop := &models.Property{}
	applyPropertyRequest(prop, req)
	if prop.Status == "" {
		prop.Status = models.PropertyStatusDraft
	}
	if err := s.repo.Create(ctx, prop); err != nil {
		return nil, s.mapWriteError(err, "failed to create property")
	}
	_ = s.cache.InvalidateTags(ctx, ResourceProperties, prop.ID)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionPropertyCreate, ResourceProperties, prop.ID, nil, prop)
	return prop, nil
}

// Update replaces the mutable fields of a property.
func (s *PropertyService) Update(ctx context.Context, id string, req contract.PropertyRequest, meta models.RequestMeta) (*models.Property, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "property not found")
	}
	if err := s.normalise(ctx, &req); err != nil {
		return nil, err
	}
	prop, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *prop
	applyPropertyRequest(prop, req)
	if req.Status == "" {
		prop.Status = before.Status
	}
	if err := s.repo.Update(ctx, prop); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "property not found")
		}
		return nil, s.mapWriteError(err, "failed to update property")
	}
	_ = s.cache.InvalidateTags(ctx, ResourceProperties, id)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionPropertyUpdate, ResourceProperties, id, before, prop)
	return prop, nil
}

// UpdateStatus moves a property to status.
func (s *PropertyService) UpdateStatus(ctx context.Context, id string, status models.PropertyStatus, meta models.RequestMeta) (*models.Property, error) {
	if !validPropertyStatus(status) {
		return nil, appErrors.Validation("status", contract.Message("oneof"))
	}
	id, ok := canonicalID(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "property not found")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "property not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update property status")
	}
	_ = s.cache.InvalidateTags(ctx, ResourceProperties, id)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionPropertyUpdate, ResourceProperties, id, nil, map[string]models.PropertyStatus{"status": status})
	return s.find(ctx, id)
}

// Delete removes a property.
func (s *PropertyService) Delete(ctx context.Context, id string, meta models.RequestMeta) error {
	id, ok := canonicalID(id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "property not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "property not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete property")
	}
	_ = s.cache.InvalidateTags(ctx, ResourceProperties, id)
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionPropertyDelete, ResourceProperties, id, nil, nil)
	return nil
}

// normalise trims and validates req and checks the locality lies in the city.
func (s *PropertyService) normalise(ctx context.Context, req *contract.PropertyRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Address = strings.TrimSpace(req.Address)
	req.Type = models.PropertyType(strings.ToUpper(string(req.Type)))
	req.ListingType = models.ListingType(strings.ToUpper(string(req.ListingType)))
	req.Status = models.PropertyStatus(strings.ToUpper(string(req.Status)))
	req.LocalityID = trimOptional(req.LocalityID)
	if req.LocalityID != nil && *req.LocalityID == "" {
		req.LocalityID = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return contract.ValidationError(err, "invalid property payload")
	}

	cities, err := s.locations.FindCities(ctx, []string{req.CityID})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load city")
	}
	if len(cities) == 0 {
		return appErrors.Validation("cityId", "unknown city")
	}
	if req.LocalityID == nil {
		return nil
	}
	localities, err := s.locations.FindLocalities(ctx, []string{*req.LocalityID})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load locality")
	}
	if len(localities) == 0 || localities[0].CityID != req.CityID {
		return appErrors.Validation("localityId", "locality does not belong to the city")
	}
	return nil
}

func applyPropertyRequest(prop *models.Property, req contract.PropertyRequest) {
	prop.Title = req.Title
	prop.Description = req.Description
	prop.Type = req.Type
	prop.ListingType = req.ListingType
	prop.Status = req.Status
	prop.Price = req.Price
	prop.Bedrooms = req.Bedrooms
	prop.Bathrooms = req.Bathrooms
	prop.Area = req.Area
	prop.Address = req.Address
	prop.CityID = req.CityID
	prop.LocalityID = req.LocalityID
	prop.OwnerID = req.OwnerID
}

func validPropertyStatus(status models.PropertyStatus) bool {
	switch status {
	case models.PropertyStatusDraft, models.PropertyStatusAvailable, models.PropertyStatusPending,
		models.PropertyStatusSold, models.PropertyStatusRented, models.PropertyStatusArchived:
		return true
	}
	return false
}

func (s *PropertyService) mapWriteError(err error, message string) error {
	if errors.Is(err, repository.ErrReferenced) {
		return appErrors.Validation("ownerId", "unknown owner")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
