package models

import "time"

// Role is a named bundle of permissions. A user holds exactly one role.
type Role struct {
	ID          string       `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	UserCount   int          `db:"user_count" json:"userCount"`
	Permissions []Permission `db:"-" json:"permissions"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
}

// PermissionIDs returns the ids of the role's permissions.
func (r *Role) PermissionIDs() []string {
	ids := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

// PermissionNames returns the names of the role's permissions.
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

// RoleFilter captures listing criteria for roles.
type RoleFilter struct {
	Search string
	Page   int
	Limit  int
}

// RoleUserCount is one row of the users-per-role breakdown.
type RoleUserCount struct {
	RoleID    string `db:"role_id" json:"roleId"`
	Role      string `db:"role" json:"role"`
	UserCount int    `db:"user_count" json:"userCount"`
}

// RoleStats aggregates RBAC counts read from a single snapshot.
type RoleStats struct {
	TotalRoles       int             `json:"totalRoles"`
	TotalPermissions int             `json:"totalPermissions"`
	UsersByRole      []RoleUserCount `json:"usersByRole"`
}
