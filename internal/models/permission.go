package models

import "time"

// Permission is an atomic, dot-namespaced capability such as "users.create".
type Permission struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	RoleCount   int       `db:"role_count" json:"roleCount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// PermissionFilter captures listing criteria for permissions.
type PermissionFilter struct {
	Search string
	Page   int
	Limit  int
}

// PermissionCheck is the answer to a point permission check.
type PermissionCheck struct {
	UserID     string `json:"userId"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// EffectivePermissions is the resolved permission set of a user.
type EffectivePermissions struct {
	UserID      string   `json:"userId"`
	RoleID      string   `json:"roleId"`
	RoleName    string   `json:"roleName"`
	SuperAdmin  bool     `json:"superAdmin"`
	Permissions []string `json:"permissions"`
}

// Has reports whether the set grants name. Super admins hold everything.
func (e *EffectivePermissions) Has(name string) bool {
	if e == nil {
		return false
	}
	if e.SuperAdmin {
		return true
	}
	for _, p := range e.Permissions {
		if p == name {
			return true
		}
	}
	return false
}
