package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/service"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/response"
)

type userService interface {
	List(ctx context.Context, filter models.UserFilter) (pagination.Page[models.User], bool, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, req contract.CreateUserRequest, meta models.RequestMeta) (*models.User, error)
	Update(ctx context.Context, id string, req contract.UpdateUserRequest, meta models.RequestMeta) (*models.User, error)
	Delete(ctx context.Context, id string, meta models.RequestMeta) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus, meta models.RequestMeta) (*models.User, error)
	AssignRole(ctx context.Context, id, roleID string, meta models.RequestMeta) (*models.User, error)
	GetRole(ctx context.Context, id string) (*models.Role, error)
	Bulk(ctx context.Context, req contract.BulkUserRequest, meta models.RequestMeta) (*models.BulkResult, error)
}

type userExporter interface {
	Export(ctx context.Context, filter models.UserFilter, cfg models.ExportConfig, meta models.RequestMeta) (*service.ExportFile, error)
}

type exportJobs interface {
	CreateJob(ctx context.Context, filter models.UserFilter, cfg models.ExportConfig, meta models.RequestMeta) (*models.ExportJob, error)
	GetJob(ctx context.Context, id, actorID string) (*models.ExportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// StatusRequest changes the status of a resource.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RoleAssignmentRequest binds a role to a user.
type RoleAssignmentRequest struct {
	UserID string `json:"userId"`
	RoleID string `json:"roleId" binding:"required"`
}

// ExportRequest is the body of the export endpoints. Filters fall back to the query string when absent.
type ExportRequest struct {
	Filters *models.UserFilter  `json:"filters"`
	Config  models.ExportConfig `json:"config"`
}

// UserHandler handles user management endpoints.
type UserHandler struct {
	service  userService
	exporter userExporter
	jobs     exportJobs
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService, exporter userExporter, jobs exportJobs) *UserHandler {
	return &UserHandler{service: svc, exporter: exporter, jobs: jobs}
}

func userFilterFromQuery(c *gin.Context) (models.UserFilter, error) {
	filter := models.UserFilter{
		Search:      c.Query("search"),
		RoleIDs:     queryList(c, "role"),
		CityIDs:     queryList(c, "city"),
		LocalityIDs: queryList(c, "locality"),
		Page:        queryInt(c, "page"),
		Limit:       queryInt(c, "limit"),
		SortBy:      c.Query("sortBy"),
		SortOrder:   c.Query("sortOrder"),
	}
	for _, s := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, models.UserStatus(strings.ToUpper(s)))
	}
	var err error
	if filter.CreatedFrom, err = queryTime(c, "createdFrom"); err != nil {
		return filter, err
	}
	if filter.CreatedTo, err = queryTime(c, "createdTo"); err != nil {
		return filter, err
	}
	return filter, nil
}

// List godoc
// @Summary List users
// @Description List users with pagination and filtering
// @Tags Users
// @Produce json
// @Param search query string false "Name, email or phone substring"
// @Param role query []string false "Role IDs"
// @Param status query []string false "Statuses"
// @Param city query []string false "City IDs"
// @Param locality query []string false "Locality IDs"
// @Param createdFrom query string false "Created on or after"
// @Param createdTo query string false "Created on or before"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sortBy query string false "Sort column"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter, err := userFilterFromQuery(c)
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
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body contract.CreateUserRequest true "Create user payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req contract.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Create(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body contract.UpdateUserRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req contract.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Update(c.Request.Context(), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete user
// @Description Hard delete; users it managed lose their manager
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Change user status
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body StatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/status [patch]
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status := models.UserStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	user, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), status, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateRole godoc
// @Summary Change user role
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body RoleAssignmentRequest true "Role"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/role [patch]
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req RoleAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.AssignRole(c.Request.Context(), c.Param("id"), req.RoleID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// AssignRole godoc
// @Summary Assign a role to a user
// @Tags RBAC
// @Accept json
// @Produce json
// @Param payload body RoleAssignmentRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Router /rbac/users/assign-role [post]
func (h *UserHandler) AssignRole(c *gin.Context) {
	var req RoleAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		response.Error(c, appErrors.Validation("userId", "is required"))
		return
	}
	user, err := h.service.AssignRole(c.Request.Context(), req.UserID, req.RoleID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, user, "role assigned")
}

// Role godoc
// @Summary Role of a user
// @Tags RBAC
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /rbac/users/{id}/role [get]
func (h *UserHandler) Role(c *gin.Context) {
	role, err := h.service.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, role, nil)
}

// Bulk godoc
// @Summary Bulk user operation
// @Description Unknown ids are reported per item and never abort the batch
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body contract.BulkUserRequest true "Operation"
// @Success 200 {object} response.Envelope
// @Router /users/bulk [post]
func (h *UserHandler) Bulk(c *gin.Context) {
	var req contract.BulkUserRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Bulk(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, result, result.Message)
}

func (h *UserHandler) exportRequest(c *gin.Context) (models.UserFilter, models.ExportConfig, bool) {
	var req ExportRequest
	if !bindJSON(c, &req) {
		return models.UserFilter{}, models.ExportConfig{}, false
	}
	if req.Filters != nil {
		return *req.Filters, req.Config, true
	}
	filter, err := userFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return models.UserFilter{}, models.ExportConfig{}, false
	}
	return filter, req.Config, true
}

// Export godoc
// @Summary Export users
// @Description Streams matching users as csv, excel, json or pdf
// @Tags Users
// @Accept json
// @Produce octet-stream
// @Param payload body ExportRequest true "Filters and format"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /users/export [post]
func (h *UserHandler) Export(c *gin.Context) {
	filter, cfg, ok := h.exportRequest(c)
	if !ok {
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), filter, cfg, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("X-Export-Rows", fmt.Sprintf("%d", file.RowCount))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// CreateExportJob godoc
// @Summary Queue a user export
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body ExportRequest true "Filters and format"
// @Success 202 {object} response.Envelope
// @Router /users/export/jobs [post]
func (h *UserHandler) CreateExportJob(c *gin.Context) {
	filter, cfg, ok := h.exportRequest(c)
	if !ok {
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), filter, cfg, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportJob godoc
// @Summary Export job status
// @Description Finished jobs carry a signed downloadUrl
// @Tags Users
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/export/jobs/{id} [get]
func (h *UserHandler) ExportJob(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	job, err := h.jobs.GetJob(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// DownloadExport godoc
// @Summary Download a finished export
// @Tags Users
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /users/export/download/{token} [get]
func (h *UserHandler) DownloadExport(c *gin.Context) {
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	var size int64 = -1
	if info, err := download.File.Stat(); err == nil {
		size = info.Size()
	}
	c.DataFromReader(http.StatusOK, size, download.ContentType, io.Reader(download.File), map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
