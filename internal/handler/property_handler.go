package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/response"
)

type propertyService interface {
	List(ctx context.Context, filter models.PropertyFilter) (pagination.Page[models.Property], bool, error)
	Get(ctx context.Context, id string) (*models.Property, error)
	Create(ctx context.Context, req contract.PropertyRequest, meta models.RequestMeta) (*models.Property, error)
	Update(ctx context.Context, id string, req contract.PropertyRequest, meta models.RequestMeta) (*models.Property, error)
	UpdateStatus(ctx context.Context, id string, status models.PropertyStatus, meta models.RequestMeta) (*models.Property, error)
	Delete(ctx context.Context, id string, meta models.RequestMeta) error
}

// PropertyHandler serves property listings.
type PropertyHandler struct {
	service propertyService
}

// NewPropertyHandler constructs the handler.
func NewPropertyHandler(svc propertyService) *PropertyHandler {
	return &PropertyHandler{service: svc}
}

func propertyFilterFromQuery(c *gin.Context) (models.PropertyFilter, error) {
	filter := models.PropertyFilter{
		Search:      c.Query("search"),
		CityIDs:     queryList(c, "city"),
		LocalityIDs: queryList(c, "locality"),
		Page:        queryInt(c, "page"),
		Limit:       queryInt(c, "limit"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
	}
	for _, t := range queryList(c, "type") {
		filter.Types = append(filter.Types, models.PropertyType(strings.ToUpper(t)))
	}
	for _, s := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, models.PropertyStatus(strings.ToUpper(s)))
	}
	if lt := strings.TrimSpace(c.Query("listingType")); lt != "" {
		listing := models.ListingType(strings.ToUpper(lt))
		filter.ListingType = &listing
	}
	if c.Query("minBedrooms") != "" {
		min := queryInt(c, "minBedrooms")
		filter.MinBedrooms = &min
	}

	var err error
	if filter.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return filter, err
	}
	if filter.CreatedFrom, err = queryTime(c, "createdFrom"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryTime(c, "createdTo"); err != nil {
		return filter, err
	}
	return filter, nil
}

// List godoc
// @Summary List properties
// @Tags Properties
// @Produce json
// @Param search query string false "Title or address substring"
// @Param city query []string false "City IDs"
// @Param locality query []string false "Locality IDs"
// @Param type query []string false "Property types"
// @Param status query []string false "Statuses"
// @Param listingType query string false "SALE or RENT"
// @Param minPrice query number false "Minimum price"
// @Param maxPrice query number false "Maximum price"
// @Param minBedrooms query int false "Minimum bedrooms"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /properties [get]
func (h *PropertyHandler) List(c *gin.Context) {
	filter, err := propertyFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, hit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondPage(c, page, hit)
}

// Get godoc
// @Summary Get property
// @Tags Properties
// @Produce json
// @Param id path string true "Property ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /properties/{id} [get]
func (h *PropertyHandler) Get(c *gin.Context) {
	prop, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prop, nil)
}

// Create godoc
// @Summary Create property
// @Tags Properties
// @Accept json
// @Produce json
// @Param payload body contract.PropertyRequest true "Property"
// @Success 201 {object} response.Envelope
// @Router /properties [post]
func (h *PropertyHandler) Create(c *gin.Context) {
	var req contract.PropertyRequest
	if !bindJSON(c, &req) {
		return
	}
	prop, err := h.service.Create(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, prop)
}

// Update godoc
// @Summary Replace property
// @Tags Properties
// @Accept json
// @Produce json
// @Param id path string true "Property ID"
// @Param payload body contract.PropertyRequest true "Property"
// @Success 200 {object} response.Envelope
// @Router /properties/{id} [put]
func (h *PropertyHandler) Update(c *gin.Context) {
	var req contract.PropertyRequest
	if !bindJSON(c, &req) {
		return
	}
	prop, err := h.service.Update(c.Request.Context(), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prop, nil)
}

// UpdateStatus godoc
// @Summary Change property status
// @Tags Properties
// @Accept json
// @Produce json
// @Param id path string true "Property ID"
// @Param payload body StatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /properties/{id}/status [patch]
func (h *PropertyHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status := models.PropertyStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	prop, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), status, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prop, nil)
}

// Delete godoc
// @Summary Delete property
// @Tags Properties
// @Param id path string true "Property ID"
// @Success 204
// @Router /properties/{id} [delete]
func (h *PropertyHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
