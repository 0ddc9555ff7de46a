package client

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/querycache"
)

const (
	usersRes       = "users"
	rolesRes       = "roles"
	permissionsRes = "permissions"
	propertiesRes  = "properties"
	locationsRes   = "locations"
)

// Login exchanges credentials for a token and starts sending it.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := c.mutate(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	c.cache.Purge()
	return &out, nil
}

// Me returns the current user with their effective permissions.
func (c *Client) Me(ctx context.Context) (*models.UserInfo, error) {
	var out models.UserInfo
	if _, err := c.query(ctx, querycache.DetailKey(usersRes, "me"), "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPermissions lists the permission registry.
func (c *Client) ListPermissions(ctx context.Context, filter models.PermissionFilter) (pagination.Page[models.Permission], error) {
	params := pageParams(filter.Page, filter.Limit)
	setString(params, "search", filter.Search)
	return listPage[models.Permission](ctx, c, permissionsRes, "/rbac/permissions", params)
}

// GetPermission fetches one permission.
func (c *Client) GetPermission(ctx context.Context, id string) (*models.Permission, error) {
	var out models.Permission
	if _, err := c.query(ctx, querycache.DetailKey(permissionsRes, id), "/rbac/permissions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePermission registers a permission.
func (c *Client) CreatePermission(ctx context.Context, req contract.CreatePermissionRequest) (*models.Permission, error) {
	var out models.Permission
	err := c.mutate(ctx, http.MethodPost, "/rbac/permissions", req, &out, querycache.ListTag(permissionsRes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePermission renames or re-describes a permission. Roles embed permissions, so their entries go too.
func (c *Client) UpdatePermission(ctx context.Context, id string, req contract.UpdatePermissionRequest) (*models.Permission, error) {
	var out models.Permission
	err := c.mutate(ctx, http.MethodPut, "/rbac/permissions/"+url.PathEscape(id), req, &out,
		querycache.Tag(permissionsRes, id), querycache.ListTag(permissionsRes), querycache.ResourceTag(rolesRes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePermission removes an unreferenced permission.
func (c *Client) DeletePermission(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "/rbac/permissions/"+url.PathEscape(id), nil, nil,
		querycache.Tag(permissionsRes, id), querycache.ListTag(permissionsRes))
}

// CheckPermission asks whether userID holds permission; an empty userID means the caller.
func (c *Client) CheckPermission(ctx context.Context, userID, permission string) (*models.PermissionCheck, error) {
	params := url.Values{"permission": {permission}}
	setString(params, "userId", userID)
	raw, _, err := c.do(ctx, http.MethodGet, "/rbac/permissions/check", params, nil)
	if err != nil {
		return nil, err
	}
	var out models.PermissionCheck
	if _, err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRoles lists roles with their permissions and user counts.
func (c *Client) ListRoles(ctx context.Context, filter models.RoleFilter) (pagination.Page[models.Role], error) {
	params := pageParams(filter.Page, filter.Limit)
	setString(params, "search", filter.Search)
	return listPage[models.Role](ctx, c, rolesRes, "/rbac/roles", params)
}

// GetRole fetches one role.
func (c *Client) GetRole(ctx context.Context, id string) (*models.Role, error) {
	var out models.Role
	if _, err := c.query(ctx, querycache.DetailKey(rolesRes, id), "/rbac/roles/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RoleStats returns totals and the users-per-role breakdown.
func (c *Client) RoleStats(ctx context.Context) (*models.RoleStats, error) {
	var out models.RoleStats
	if _, err := c.query(ctx, querycache.DetailKey(rolesRes, "stats"), "/rbac/roles/st/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRole creates a role with the given permission set.
func (c *Client) CreateRole(ctx context.Context, req contract.CreateRoleRequest) (*models.Role, error) {
	var out models.Role
	err := c.mutate(ctx, http.MethodPost, "/rbac/roles", req, &out,
		querycache.ListTag(rolesRes), querycache.Tag(rolesRes, "stats"))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRole replaces the role's fields and, when given, its whole permission set.
func (c *Client) UpdateRole(ctx context.Context, id string, req contract.UpdateRoleRequest) (*models.Role, error) {
	var out models.Role
	err := c.mutate(ctx, http.MethodPut, "/rbac/roles/"+url.PathEscape(id), req, &out, roleTags(id)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRole removes a role no user holds.
func (c *Client) DeleteRole(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "/rbac/roles/"+url.PathEscape(id), nil, nil, roleTags(id)...)
}

// ListUsers lists users matching filter.
func (c *Client) ListUsers(ctx context.Context, filter models.UserFilter) (pagination.Page[models.User], error) {
	params := pageParams(filter.Page, filter.Limit)
	setString(params, "search", filter.Search)
	setList(params, "role", filter.RoleIDs)
	for _, status := range filter.Statuses {
		params.Add("status", string(status))
	}
	setList(params, "city", filter.CityIDs)
	setList(params, "locality", filter.LocalityIDs)
	setTime(params, "createdFrom", filter.CreatedFrom)
	setTime(params, "createdTo", filter.CreatedTo)
	setString(params, "sortBy", filter.SortBy)
	setString(params, "sortOrder", filter.SortOrder)
	return listPage[models.User](ctx, c, usersRes, "/users", params)
}

// GetUser fetches one user.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var out models.User
	if _, err := c.query(ctx, querycache.DetailKey(usersRes, id), "/users/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUserRole fetches the role bound to a user.
func (c *Client) GetUserRole(ctx context.Context, id string) (*models.Role, error) {
	var out models.Role
	key := querycache.Key{Resource: usersRes, ID: id, Query: "role"}
	if _, err := c.query(ctx, key, "/rbac/users/"+url.PathEscape(id)+"/role", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser validates req locally and creates the user.
func (c *Client) CreateUser(ctx context.Context, req contract.CreateUserRequest) (*models.User, error) {
	var out models.User
	err := c.mutate(ctx, http.MethodPost, "/users", req, &out,
		querycache.ListTag(usersRes), querycache.ResourceTag(rolesRes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser applies the provided fields.
func (c *Client) UpdateUser(ctx context.Context, id string, req contract.UpdateUserRequest) (*models.User, error) {
	var out models.User
	err := c.mutate(ctx, http.MethodPut, "/users/"+url.PathEscape(id), req, &out, userTags(id)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a user; users they managed lose their manager.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil,
		querycache.ResourceTag(usersRes), querycache.ResourceTag(rolesRes))
}

// UpdateUserStatus sets the status unconditionally.
func (c *Client) UpdateUserStatus(ctx context.Context, id string, status models.UserStatus) (*models.User, error) {
	var out models.User
	err := c.mutate(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/status",
		map[string]string{"status": string(status)}, &out,
		querycache.Tag(usersRes, id), querycache.ListTag(usersRes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignRole binds roleID to the user.
func (c *Client) AssignRole(ctx context.Context, userID, roleID string) (*models.User, error) {
	var out models.User
	err := c.mutate(ctx, http.MethodPost, "/rbac/users/assign-role",
		map[string]string{"userId": userID, "roleId": roleID}, &out, userTags(userID)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkUsers applies one operation to many users.
func (c *Client) BulkUsers(ctx context.Context, req contract.BulkUserRequest) (*models.BulkResult, error) {
	var out models.BulkResult
	err := c.mutate(ctx, http.MethodPost, "/users/bulk", req, &out,
		querycache.ResourceTag(usersRes), querycache.ResourceTag(rolesRes))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportFile is a downloaded export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportUsers renders the export synchronously.
func (c *Client) ExportUsers(ctx context.Context, filter *models.UserFilter, cfg models.ExportConfig) (*ExportFile, error) {
	payload := map[string]interface{}{"filters": filter, "config": cfg}
	raw, header, err := c.do(ctx, http.MethodPost, "/users/export", nil, payload)
	if err != nil {
		return nil, err
	}
	file := &ExportFile{ContentType: header.Get("Content-Type"), Data: raw}
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil {
		file.Filename = params["filename"]
	}
	return file, nil
}

// CreateExportJob queues an asynchronous export.
func (c *Client) CreateExportJob(ctx context.Context, filter *models.UserFilter, cfg models.ExportConfig) (*models.ExportJob, error) {
	var out models.ExportJob
	payload := map[string]interface{}{"filters": filter, "config": cfg}
	if err := c.mutate(ctx, http.MethodPost, "/users/export/jobs", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportJob polls a job. It is never cached.
func (c *Client) ExportJob(ctx context.Context, id string) (*models.ExportJob, error) {
	raw, _, err := c.do(ctx, http.MethodGet, "/users/export/jobs/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var out models.ExportJob
	if _, err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProperties lists properties matching filter.
func (c *Client) ListProperties(ctx context.Context, filter models.PropertyFilter) (pagination.Page[models.Property], error) {
	params := pageParams(filter.Page, filter.Limit)
	setString(params, "search", filter.Search)
	setList(params, "city", filter.CityIDs)
	setList(params, "locality", filter.LocalityIDs)
	for _, t := range filter.Types {
		params.Add("type", string(t))
	}
	for _, status := range filter.Statuses {
		params.Add("status", string(status))
	}
	if filter.ListingType != nil {
		params.Set("listingType", string(*filter.ListingType))
	}
	if filter.MinPrice != nil {
		params.Set("minPrice", strconv.FormatFloat(*filter.MinPrice, 'f', -1, 64))
	}
	if filter.MaxPrice != nil {
		params.Set("maxPrice", strconv.FormatFloat(*filter.MaxPrice, 'f', -1, 64))
	}
	if filter.MinBedrooms != nil {
		params.Set("minBedrooms", strconv.Itoa(*filter.MinBedrooms))
	}
	setTime(params, "createdFrom", filter.CreatedFrom)
	setTime(params, "createdTo", filter.CreatedTo)
	setString(params, "sortBy", filter.SortBy)
	setString(params, "sortOrder", filter.SortOrder)
	return listPage[models.Property](ctx, c, propertiesRes, "/properties", params)
}

// GetProperty fetches one property.
func (c *Client) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var out models.Property
	if _, err := c.query(ctx, querycache.DetailKey(propertiesRes, id), "/properties/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProperty creates a listing.
func (c *Client) CreateProperty(ctx context.Context, req contract.PropertyRequest) (*models.Property, error) {
	var out models.Property
	if err := c.mutate(ctx, http.MethodPost, "/properties", req, &out, querycache.ListTag(propertiesRes)); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProperty replaces a listing.
func (c *Client) UpdateProperty(ctx context.Context, id string, req contract.PropertyRequest) (*models.Property, error) {
	var out models.Property
	err := c.mutate(ctx, http.MethodPut, "/properties/"+url.PathEscape(id), req, &out, propertyTags(id)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePropertyStatus moves a listing to status.
func (c *Client) UpdatePropertyStatus(ctx context.Context, id string, status models.PropertyStatus) (*models.Property, error) {
	var out models.Property
	err := c.mutate(ctx, http.MethodPatch, "/properties/"+url.PathEscape(id)+"/status",
		map[string]string{"status": string(status)}, &out, propertyTags(id)...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProperty removes a listing.
func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, "/properties/"+url.PathEscape(id), nil, nil, propertyTags(id)...)
}

// Cities lists every city.
func (c *Client) Cities(ctx context.Context) ([]models.City, error) {
	var out []models.City
	if _, err := c.query(ctx, querycache.ListKey(locationsRes, "cities"), "/locations/cities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Localities lists localities of cityIDs, or all when empty.
func (c *Client) Localities(ctx context.Context, cityIDs ...string) ([]models.Locality, error) {
	params := url.Values{}
	setList(params, "city", cityIDs)
	var out []models.Locality
	key := querycache.ListKey(locationsRes, "localities?"+params.Encode())
	if _, err := c.query(ctx, key, "/locations/localities", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func listPage[T any](ctx context.Context, c *Client, resource, path string, params url.Values) (pagination.Page[T], error) {
	var items []T
	meta, err := c.query(ctx, querycache.ListKey(resource, params.Encode()), path, params, &items)
	if err != nil {
		return pagination.Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	page := pagination.Page[T]{Items: items}
	if meta != nil {
		page.Meta = *meta
	}
	return page, nil
}

func roleTags(id string) []string {
	return []string{
		querycache.Tag(rolesRes, id), querycache.ListTag(rolesRes), querycache.Tag(rolesRes, "stats"),
		querycache.ResourceTag(usersRes),
	}
}

func userTags(id string) []string {
	return []string{querycache.Tag(usersRes, id), querycache.ListTag(usersRes), querycache.ResourceTag(rolesRes)}
}

func propertyTags(id string) []string {
	return []string{querycache.Tag(propertiesRes, id), querycache.ListTag(propertiesRes)}
}

func pageParams(page, limit int) url.Values {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return params
}

func setString(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

func setList(params url.Values, key string, values []string) {
	for _, v := range values {
		params.Add(key, v)
	}
}

func setTime(params url.Values, key string, t *time.Time) {
	if t != nil {
		params.Set(key, t.UTC().Format(time.RFC3339))
	}
}
