package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/response"
)

type permissionService interface {
	List(ctx context.Context, filter models.PermissionFilter) (pagination.Page[models.Permission], bool, error)
	Get(ctx context.Context, id string) (*models.Permission, error)
	Create(ctx context.Context, req contract.CreatePermissionRequest, meta models.RequestMeta) (*models.Permission, error)
	Update(ctx context.Context, id string, req contract.UpdatePermissionRequest, meta models.RequestMeta) (*models.Permission, error)
	Delete(ctx context.Context, id string, meta models.RequestMeta) error
}

type permissionChecker interface {
	Check(ctx context.Context, userID, permission string) (*models.PermissionCheck, error)
}

// PermissionHandler serves the permission registry.
type PermissionHandler struct {
	service permissionService
	checker permissionChecker
}

// NewPermissionHandler constructs the handler.
func NewPermissionHandler(svc permissionService, checker permissionChecker) *PermissionHandler {
	return &PermissionHandler{service: svc, checker: checker}
}

// List godoc
// @Summary List permissions
// @Tags RBAC
// @Produce json
// @Param search query string false "Name or description substring"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rbac/permissions [get]
func (h *PermissionHandler) List(c *gin.Context) {
	page, hit, err := h.service.List(c.Request.Context(), models.PermissionFilter{
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
// @Summary Get permission
// @Tags RBAC
// @Produce json
// @Param id path string true "Permission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rbac/permissions/{id} [get]
func (h *PermissionHandler) Get(c *gin.Context) {
	perm, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perm, nil)
}

// Create godoc
// @Summary Create permission
// @Tags RBAC
// @Accept json
// @Produce json
// @Param payload body contract.CreatePermissionRequest true "Permission"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rbac/permissions [post]
func (h *PermissionHandler) Create(c *gin.Context) {
	var req contract.CreatePermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	perm, err := h.service.Create(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, perm)
}

// Update godoc
// @Summary Update permission
// @Tags RBAC
// @Accept json
// @Produce json
// @Param id path string true "Permission ID"
// @Param payload body contract.UpdatePermissionRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rbac/permissions/{id} [put]
func (h *PermissionHandler) Update(c *gin.Context) {
	var req contract.UpdatePermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	perm, err := h.service.Update(c.Request.Context(), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perm, nil)
}

// Delete godoc
// @Summary Delete permission
// @Tags RBAC
// @Param id path string true "Permission ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /rbac/permissions/{id} [delete]
func (h *PermissionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Check godoc
// @Summary Check a permission
// @Description Answers whether a user holds a permission; defaults to the caller
// @Tags RBAC
// @Produce json
// @Param permission query string true "Permission name"
// @Param userId query string false "User ID"
// @Success 200 {object} response.Envelope
// @Router /rbac/permissions/check [get]
func (h *PermissionHandler) Check(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID := c.DefaultQuery("userId", claims.UserID)
	result, err := h.checker.Check(c.Request.Context(), userID, c.Query("permission"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
