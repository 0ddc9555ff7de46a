package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/database"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/pagination"
)

const roleColumns = `r.id, r.name, r.description, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM users u WHERE u.role_id = r.id) AS user_count`

// RoleRepository provides database access for roles and their permission sets.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new instance of RoleRepository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// List returns roles (with permissions) matching the filter and the total match count.
func (r *RoleRepository) List(ctx context.Context, filter models.RoleFilter) ([]models.Role, int, error) {
	baseQuery := `FROM roles r WHERE 1=1`
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, containsPattern(search))
		baseQuery += fmt.Sprintf(` AND (r.name ILIKE $%d ESCAPE '\' OR r.description ILIKE $%d ESCAPE '\')`, len(args), len(args))
	}

	page := pagination.Normalize(pagination.Request{Page: filter.Page, Limit: filter.Limit})
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY r.name ASC, r.id ASC LIMIT %d OFFSET %d", roleColumns, baseQuery, page.Limit, page.Offset())

	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count roles: %w", err)
	}

	if err := r.attachPermissions(ctx, roles); err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// FindByID returns a role and its permissions.
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*models.Role, error) {
	return r.findOne(ctx, "r.id = $1", id)
}

// FindByName returns a role by its unique name.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	return r.findOne(ctx, "r.name = $1", name)
}

func (r *RoleRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.Role, error) {
	query := fmt.Sprintf("SELECT %s FROM roles r WHERE %s LIMIT 1", roleColumns, where)
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	roles := []models.Role{role}
	if err := r.attachPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return &roles[0], nil
}

type rolePermissionRow struct {
	RoleID string `db:"role_id"`
	models.Permission
}

func (r *RoleRepository) attachPermissions(ctx context.Context, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]string, len(roles))
	index := make(map[string]int, len(roles))
	for i := range roles {
		ids[i] = roles[i].ID
		index[roles[i].ID] = i
		roles[i].Permissions = []models.Permission{}
	}

	const query = `SELECT rp.role_id, p.id, p.name, p.description, p.created_at, p.updated_at
		FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1::uuid[]) ORDER BY p.name ASC`
	var rows []rolePermissionRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load role permissions: %w", err)
	}
	for _, row := range rows {
		i := index[row.RoleID]
		roles[i].Permissions = append(roles[i].Permissions, row.Permission)
	}
	return nil
}

// Create inserts a role together with its permission set in one transaction.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role, permissionIDs []string) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	return database.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO roles (id, name, description, created_at, updated_at) VALUES (:id, :name, :description, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, role); err != nil {
			return fmt.Errorf("create role: %w", translate(err))
		}
		return replacePermissions(ctx, tx, role.ID, permissionIDs)
	})
}

// Update persists name and description and, when permissionIDs is non-nil, replaces the permission set.
func (r *RoleRepository) Update(ctx context.Context, role *models.Role, permissionIDs []string) error {
	role.UpdatedAt = time.Now().UTC()

	return database.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		const query = `UPDATE roles SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, role)
		if err != nil {
			return fmt.Errorf("update role: %w", translate(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		if permissionIDs == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}
		return replacePermissions(ctx, tx, role.ID, permissionIDs)
	})
}

func replacePermissions(ctx context.Context, tx *sqlx.Tx, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO role_permissions (role_id, permission_id, created_at)
		SELECT $1, pid, NOW() FROM UNNEST($2::uuid[]) AS pid ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, query, roleID, pq.Array(permissionIDs)); err != nil {
		return fmt.Errorf("attach role permissions: %w", translate(err))
	}
	return nil
}

// Delete removes a role. Returns sql.ErrNoRows when nothing was deleted.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats reads role, permission and per-role user counts from one repeatable-read snapshot.
func (r *RoleRepository) Stats(ctx context.Context) (*models.RoleStats, error) {
	stats := &models.RoleStats{}
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := database.WithTx(ctx, r.db, opts, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &stats.TotalRoles, `SELECT COUNT(*) FROM roles`); err != nil {
			return fmt.Errorf("count roles: %w", err)
		}
		if err := tx.GetContext(ctx, &stats.TotalPermissions, `SELECT COUNT(*) FROM permissions`); err != nil {
			return fmt.Errorf("count permissions: %w", err)
		}
		const byRole = `SELECT r.id AS role_id, r.name AS role, COUNT(u.id) AS user_count
			FROM roles r LEFT JOIN users u ON u.role_id = r.id
			GROUP BY r.id, r.name ORDER BY r.name ASC`
		if err := tx.SelectContext(ctx, &stats.UsersByRole, byRole); err != nil {
			return fmt.Errorf("count users by role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stats.UsersByRole == nil {
		stats.UsersByRole = []models.RoleUserCount{}
	}
	return stats, nil
}
