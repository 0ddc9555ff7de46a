package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// UserStatus is the account state of a user. Any status may follow any other.
type UserStatus string

const (
	UserStatusActive              UserStatus = "ACTIVE"
	UserStatusInactive            UserStatus = "INACTIVE"
	UserStatusSuspended           UserStatus = "SUSPENDED"
	UserStatusPendingVerification UserStatus = "PENDING_VERIFICATION"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended, UserStatusPendingVerification:
		return true
	}
	return false
}

// User is an administrative user together with its access binding.
type User struct {
	ID           string         `db:"id" json:"id"`
	FirstName    string         `db:"first_name" json:"firstName"`
	LastName     string         `db:"last_name" json:"lastName"`
	Email        string         `db:"email" json:"email"`
	Phone        *string        `db:"phone" json:"phone,omitempty"`
	PasswordHash string         `db:"password_hash" json:"-"`
	RoleID       string         `db:"role_id" json:"roleId"`
	RoleName     string         `db:"role_name" json:"roleName"`
	Status       UserStatus     `db:"status" json:"status"`
	Cities       pq.StringArray `db:"cities" json:"cities"`
	Localities   pq.StringArray `db:"localities" json:"localities"`
	ManagerID    *string        `db:"manager_id" json:"managerId,omitempty"`
	LastLogin    *time.Time     `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserFilter captures filtering criteria for listing and exporting users.
// Slices are OR-ed within themselves, criteria are AND-ed together.
type UserFilter struct {
	Search      string       `json:"search,omitempty"`
	RoleIDs     []string     `json:"roleIds,omitempty"`
	Statuses    []UserStatus `json:"statuses,omitempty"`
	CityIDs     []string     `json:"cityIds,omitempty"`
	LocalityIDs []string     `json:"localityIds,omitempty"`
	CreatedFrom *time.Time   `json:"createdFrom,omitempty"`
	CreatedTo   *time.Time   `json:"createdTo,omitempty"`
	Page        int          `json:"page,omitempty"`
	Limit       int          `json:"limit,omitempty"`
	SortBy      string       `json:"sortBy,omitempty"`
	SortOrder   string       `json:"sortOrder,omitempty"`
}

// BulkOperation is an operation applied to many users at once.
type BulkOperation string

const (
	BulkActivate   BulkOperation = "activate"
	BulkDeactivate BulkOperation = "deactivate"
	BulkDelete     BulkOperation = "delete"
)

// BulkOutcome is the per-id result of a bulk operation.
type BulkOutcome string

const (
	BulkOutcomeProcessed BulkOutcome = "processed"
	BulkOutcomeNotFound  BulkOutcome = "not_found"
	BulkOutcomeFailed    BulkOutcome = "failed"
)

// BulkItemResult reports what happened to one id.
type BulkItemResult struct {
	ID      string      `json:"id"`
	Outcome BulkOutcome `json:"outcome"`
	Error   string      `json:"error,omitempty"`
}

// BulkResult summarises a bulk operation.
type BulkResult struct {
	Processed int              `json:"processed"`
	Message   string           `json:"message"`
	Results   []BulkItemResult `json:"results"`
}
