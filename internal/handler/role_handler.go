package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/response"
)

type roleService interface {
	List(ctx context.Context, filter models.RoleFilter) (pagination.Page[models.Role], bool, error)
	Get(ctx context.Context, id string) (*models.Role, error)
	Create(ctx context.Context, req contract.CreateRoleRequest, meta models.RequestMeta) (*models.Role, error)
	Update(ctx context.Context, id string, req contract.UpdateRoleRequest, meta models.RequestMeta) (*models.Role, error)
	Delete(ctx context.Context, id string, meta models.RequestMeta) error
	Stats(ctx context.Context) (*models.RoleStats, error)
}

// RoleHandler serves role CRUD and statistics.
type RoleHandler struct {
	service roleService
}

// NewRoleHandler constructs the handler.
func NewRoleHandler(svc roleService) *RoleHandler {
	return &RoleHandler{service: svc}
}

// List godoc
// @Summary List roles
// @Tags RBAC
// @Produce json
// @Param search query string false "Name or description substring"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rbac/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	page, hit, err := h.service.List(c.Request.Context(), models.RoleFilter{
		Search: c.Query("search"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	respondPage(c, page, hit)
}

// Get godoc
// @Summary Get role
// @Tags RBAC
// @Produce json
// @Param id path string true "Role ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rbac/roles/{id} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Create godoc
// @Summary Create role
// @Tags RBAC
// @Accept json
// @Produce json
// @Param payload body contract.CreateRoleRequest true "Role"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /rbac/roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	var req contract.CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.service.Create(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}

// Update godoc
// @Summary Update role
// @Description permissionIds, when present, replaces the whole permission set
// @Tags RBAC
// @Accept json
// @Produce json
// @Param id path string true "Role ID"
// @Param payload body contract.UpdateRoleRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /rbac/roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	var req contract.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := h.service.Update(c.Request.Context(), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Delete godoc
// @Summary Delete role
// @Tags RBAC
// @Param id path string true "Role ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /rbac/roles/{id} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Role statistics
// @Tags RBAC
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rbac/roles/st/stats [get]
func (h *RoleHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
