package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/middleware"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/response"
)

type locationService interface {
	Cities(ctx context.Context) ([]models.City, bool, error)
	Localities(ctx context.Context, cityIDs []string) ([]models.Locality, bool, error)
}

// LocationHandler serves the city and locality catalogue.
type LocationHandler struct {
	service locationService
}

// NewLocationHandler constructs the handler.
func NewLocationHandler(svc locationService) *LocationHandler {
	return &LocationHandler{service: svc}
}

// Cities godoc
// @Summary List cities
// @Tags Locations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /locations/cities [get]
func (h *LocationHandler) Cities(c *gin.Context) {
	cities, hit, err := h.service.Cities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, cities, nil, middleware.ExtractMeta(c))
}

// Localities godoc
// @Summary List localities
// @Tags Locations
// @Produce json
// @Param city query []string false "Restrict to these city IDs"
// @Success 200 {object} response.Envelope
// @Router /locations/localities [get]
func (h *LocationHandler) Localities(c *gin.Context) {
	localities, hit, err := h.service.Localities(c.Request.Context(), queryList(c, "city"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, localities, nil, middleware.ExtractMeta(c))
}
