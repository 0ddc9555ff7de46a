// Package contract holds the request payloads and validation rules shared by the
// API server and its Go client.
package contract

import "github.com/JoshuaMusyokar/real-estate-sub004/internal/models"

// CreatePermissionRequest is the payload for registering a permission.
type CreatePermissionRequest struct {
	Name        string `json:"name" validate:"required,permname"`
	Description string `json:"description" validate:"max=500"`
}

// UpdatePermissionRequest carries the fields to change; nil fields are left alone.
type UpdatePermissionRequest struct {
	Name        *string `json:"name" validate:"omitempty,permname"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// CreateRoleRequest is the payload for creating a role.
type CreateRoleRequest struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Description   string   `json:"description" validate:"max=500"`
	PermissionIDs []string `json:"permissionIds"`
}

// UpdateRoleRequest carries the fields to change. A non-nil PermissionIDs replaces the whole set.
type UpdateRoleRequest struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description   *string  `json:"description" validate:"omitempty,max=500"`
	PermissionIDs []string `json:"permissionIds"`
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	FirstName  string            `json:"firstName" validate:"required,max=100"`
	LastName   string            `json:"lastName" validate:"required,max=100"`
	Email      string            `json:"email" validate:"required,email"`
	Phone      *string           `json:"phone" validate:"omitempty,phone"`
	Password   string            `json:"password" validate:"required,strongpassword"`
	RoleID     string            `json:"roleId" validate:"required"`
	Status     models.UserStatus `json:"status" validate:"omitempty,userstatus"`
	Cities     []string          `json:"cities" validate:"required,min=1,dive,required"`
	Localities []string          `json:"localities" validate:"omitempty,dive,required"`
	ManagerID  *string           `json:"managerId"`
}

// UpdateUserRequest carries the fields to change; nil fields are left alone.
type UpdateUserRequest struct {
	FirstName  *string            `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName   *string            `json:"lastName" validate:"omitempty,min=1,max=100"`
	Email      *string            `json:"email" validate:"omitempty,email"`
	Phone      *string            `json:"phone" validate:"omitempty,phone"`
	Password   *string            `json:"password" validate:"omitempty,strongpassword"`
	RoleID     *string            `json:"roleId" validate:"omitempty,min=1"`
	Status     *models.UserStatus `json:"status" validate:"omitempty,userstatus"`
	Cities     []string           `json:"cities" validate:"omitempty,min=1,dive,required"`
	Localities []string           `json:"localities" validate:"omitempty,dive,required"`
	ManagerID  *string            `json:"managerId"`
}

// BulkUserRequest is the payload of a bulk user operation.
type BulkUserRequest struct {
	UserIDs   []string             `json:"userIds" validate:"required,min=1,max=1000"`
	Operation models.BulkOperation `json:"operation" validate:"required,oneof=activate deactivate delete"`
}

// PropertyRequest is the payload for creating or replacing a property.
type PropertyRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"max=5000"`
	Type        models.PropertyType   `json:"type" validate:"required,oneof=APARTMENT HOUSE VILLA PLOT COMMERCIAL OFFICE"`
	ListingType models.ListingType    `json:"listingType" validate:"required,oneof=SALE RENT"`
	Status      models.PropertyStatus `json:"status" validate:"omitempty,oneof=DRAFT AVAILABLE PENDING SOLD RENTED ARCHIVED"`
	Price       float64               `json:"price" validate:"gte=0"`
	Bedrooms    int                   `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int                   `json:"bathrooms" validate:"gte=0"`
	Area        float64               `json:"area" validate:"gte=0"`
	Address     string                `json:"address" validate:"max=500"`
	CityID      string                `json:"cityId" validate:"required"`
	LocalityID  *string               `json:"localityId"`
	OwnerID     *string               `json:"ownerId"`
}
